package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/univlib/lending-system/internal/core/ports"
)

// ItemHandler handles HTTP requests for catalog operations.
type ItemHandler struct {
	service ports.LendingService
}

func NewItemHandler(service ports.LendingService) *ItemHandler {
	return &ItemHandler{service: service}
}

// List handles GET /v1/items.
//
// @Summary      List catalog items
// @Tags         items
// @Produce      json
// @Param        X-Patron-ID  header    int     true   "Acting patron id"
// @Param        kind         query     string  false  "Filter by kind (book, cd, dvd, audiobook)"
// @Success      200          {object}  itemListResponse
// @Failure      400          {object}  errorResponse
// @Router       /v1/items [get]
func (h *ItemHandler) List(c echo.Context) error {
	items, err := h.service.ListItems(c.Request().Context(), c.QueryParam("kind"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toItemList(items))
}

// Get handles GET /v1/items/:id.
//
// @Summary      Get a catalog item
// @Tags         items
// @Produce      json
// @Param        X-Patron-ID  header    int  true  "Acting patron id"
// @Param        id           path      int  true  "Item id"
// @Success      200          {object}  itemResponse
// @Failure      404          {object}  errorResponse
// @Router       /v1/items/{id} [get]
func (h *ItemHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.service.GetItem(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

// Create handles POST /v1/items.
//
// @Summary      Add an item to the catalog
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        X-Patron-ID  header    int             true  "Acting patron id (librarian)"
// @Param        body         body      addItemRequest  true  "Item"
// @Success      201          {object}  itemResponse
// @Failure      400          {object}  errorResponse
// @Failure      403          {object}  errorResponse
// @Failure      409          {object}  errorResponse
// @Router       /v1/items [post]
func (h *ItemHandler) Create(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item, err := h.service.AddItem(c.Request().Context(), toAddItemInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toItemResponse(item))
}

// Delete handles DELETE /v1/items/:id.
//
// @Summary      Remove an item from the catalog
// @Tags         items
// @Param        X-Patron-ID  header  int  true  "Acting patron id (librarian)"
// @Param        id           path    int  true  "Item id"
// @Success      204
// @Failure      404          {object}  errorResponse
// @Failure      409          {object}  errorResponse
// @Router       /v1/items/{id} [delete]
func (h *ItemHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.RemoveItem(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
