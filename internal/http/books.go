package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type BooksController struct {
	library Library
}

func NewBooksController(library Library) *BooksController {
	return &BooksController{
		library: library,
	}
}

func (controller *BooksController) GetAllBooks(c *gin.Context) {
	books, err := controller.library.GetAllBooks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.library.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, book)
}

func (controller *BooksController) GetPage(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	pageNumber, ok := parseUintParam(c, "pageNumber")
	if !ok {
		return
	}

	page, err := controller.library.GetPage(c.Request.Context(), id, int(pageNumber))
	if err != nil {
		respondError(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, page)
}
