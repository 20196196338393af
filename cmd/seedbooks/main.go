// Command seedbooks populates a database with sample books so the app can
// be tried without a reachable remote catalog.
// Usage: go run cmd/seedbooks/main.go [-db path/to/kidsreading.db]
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/krizium/kidsreading/internal/config"
	"github.com/krizium/kidsreading/internal/database"
	"github.com/krizium/kidsreading/internal/database/books"
	"github.com/krizium/kidsreading/internal/entities"
)

func main() {
	dbPath := flag.String("db", config.DefaultDatabasePath, "path to the database file")
	flag.Parse()

	log.Printf("Seeding sample books into %s...", *dbPath)

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	repo := books.NewRepository(db.DB)

	existing, err := repo.GetAllBooks()
	if err != nil {
		log.Fatalf("Failed to check existing books: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("Database already has %d books, nothing to do", len(existing))
		return
	}

	for _, book := range sampleBooks() {
		book := book
		if err := repo.SaveBook(&book); err != nil {
			log.Printf("Failed to save book %q: %v", book.Title, err)
			continue
		}
		log.Printf("Saved: %s by %s (%d pages)", book.Title, book.Author, len(book.Pages))
	}

	log.Println("Sample books seeded successfully!")
}

func sampleBooks() []entities.Book {
	return []entities.Book{
		{
			ID:            1,
			Title:         "Max's Adventure in the Forest",
			Author:        "Sarah Johnson",
			CoverImageURL: "images/books/max_adventure.jpg",
			AgeRangeMin:   3,
			AgeRangeMax:   7,
			Pages: []entities.Page{
				page(1, "images/books/max_adventure_1.jpg",
					"One sunny morning, Max the curious little fox went exploring in the big green forest."),
				page(2, "images/books/max_adventure_2.jpg",
					"He found a shiny blue feather on the path, made friends with a happy squirrel, and shared his lunch with a hungry rabbit."),
				page(3, "images/books/max_adventure_3.jpg",
					"It was the best adventure ever!"),
			},
		},
		{
			ID:            2,
			Title:         "The Counting Game",
			Author:        "Michael Roberts",
			CoverImageURL: "images/books/counting_game.jpg",
			AgeRangeMin:   2,
			AgeRangeMax:   5,
			Pages: []entities.Page{
				page(1, "images/books/counting_1.jpg",
					"I can count to ten! Let's count together."),
				page(2, "images/books/counting_2.jpg",
					"One apple. Two bananas. Three oranges."),
				page(3, "images/books/counting_3.jpg",
					"Four cars. Five trains. Six boats."),
				page(4, "images/books/counting_4.jpg",
					"Seven stars. Eight flowers. Nine trees. Ten butterflies."),
			},
		},
		{
			ID:            3,
			Title:         "Colors All Around",
			Author:        "Emily Chen",
			CoverImageURL: "images/books/colors.jpg",
			AgeRangeMin:   2,
			AgeRangeMax:   6,
			Pages: []entities.Page{
				page(1, "images/books/colors_1.jpg",
					"Colors are everywhere! Let's learn about colors."),
				page(2, "images/books/colors_2.jpg",
					"Red is the color of apples and strawberries."),
				page(3, "images/books/colors_3.jpg",
					"Blue is the color of the sky and ocean."),
				page(4, "images/books/colors_4.jpg",
					"Yellow is the color of bananas and the sun."),
				page(5, "images/books/colors_5.jpg",
					"Green is the color of grass and leaves."),
			},
		},
	}
}

// page builds a one-paragraph page from a sentence, one word per entry.
func page(number int, imageURL, sentence string) entities.Page {
	parts := strings.Fields(sentence)
	words := make([]entities.Word, 0, len(parts))
	for i, text := range parts {
		words = append(words, entities.Word{
			Text:  text,
			Order: i + 1,
		})
	}
	return entities.Page{
		PageNumber: number,
		ImageURL:   imageURL,
		Paragraphs: []entities.Paragraph{
			{Order: 1, Words: words},
		},
	}
}
