package api

import (
	"net/http"
	"strings"

	"storefront/internal/guestcart"

	"github.com/gin-gonic/gin"
)

type cartItemRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type mergeRequest struct {
	UserID  string `json:"userId"`
	GuestID string `json:"guestId"`
}

func (h *Handler) addToCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	cart, err := h.carts.AddToCart(c.Request.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, cart)
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.carts.GetCart(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, cart)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	cart, err := h.carts.UpdateQuantity(c.Request.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, cart)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	cart, err := h.carts.RemoveFromCart(c.Request.Context(), c.Param("userId"), c.Param("productId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, cart)
}

// mergeGuestCart moves the guest cart into the user's cart after login
func (h *Handler) mergeGuestCart(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.GuestID) == "" {
		fail(c, http.StatusBadRequest, "userId and guestId are required")
		return
	}

	cart, err := h.merger.Merge(c.Request.Context(), req.UserID, h.guestCarts(req.GuestID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, cart)
}

type guestCartView struct {
	Items []guestcart.Item `json:"items"`
	Count int              `json:"count"`
}

func (h *Handler) guestCart(c *gin.Context) (*guestcart.Store, bool) {
	guestID := strings.TrimSpace(c.Param("guestId"))
	if guestID == "" {
		fail(c, http.StatusBadRequest, "guestId is required")
		return nil, false
	}
	return h.guestCarts(guestID), true
}

func (h *Handler) respondGuestCart(c *gin.Context, cart *guestcart.Store) {
	items := cart.Get()
	if items == nil {
		items = []guestcart.Item{}
	}
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	ok(c, http.StatusOK, guestCartView{Items: items, Count: count})
}

func (h *Handler) getGuestCart(c *gin.Context) {
	cart, found := h.guestCart(c)
	if !found {
		return
	}
	h.respondGuestCart(c, cart)
}

func (h *Handler) addGuestCartItem(c *gin.Context) {
	cart, found := h.guestCart(c)
	if !found {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		fail(c, http.StatusBadRequest, "productId is required")
		return
	}

	if _, err := h.catalog.GetProduct(c.Request.Context(), req.ProductID); err != nil {
		h.writeError(c, err)
		return
	}
	if err := cart.Add(req.ProductID, req.Quantity); err != nil {
		h.writeError(c, err)
		return
	}
	h.respondGuestCart(c, cart)
}

func (h *Handler) updateGuestCartItem(c *gin.Context) {
	cart, found := h.guestCart(c)
	if !found {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	cart.Update(req.ProductID, req.Quantity)
	h.respondGuestCart(c, cart)
}

func (h *Handler) removeGuestCartItem(c *gin.Context) {
	cart, found := h.guestCart(c)
	if !found {
		return
	}
	cart.Remove(c.Param("productId"))
	h.respondGuestCart(c, cart)
}

func (h *Handler) clearGuestCart(c *gin.Context) {
	cart, found := h.guestCart(c)
	if !found {
		return
	}
	cart.Clear()
	ok(c, http.StatusOK, guestCartView{Items: []guestcart.Item{}})
}

