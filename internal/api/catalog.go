package api

import (
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts supports ?category=a,b&brand=x&sortBy=price-lowtohigh
func (h *Handler) listProducts(c *gin.Context) {
	filter := service.ParseProductFilter(c.Query("category"), c.Query("brand"), c.Query("sortBy"))

	products, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, product)
}

func (h *Handler) searchProducts(c *gin.Context) {
	products, err := h.catalog.Search(c.Request.Context(), c.Param("keyword"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, products)
}

func (h *Handler) addProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	product, err := h.catalog.AddProduct(c.Request.Context(), &in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, product)
}

func (h *Handler) listAllProducts(c *gin.Context) {
	products, err := h.catalog.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, products)
}

func (h *Handler) editProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	product, err := h.catalog.EditProduct(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product delete successfully",
	})
}
