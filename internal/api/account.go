package api

import (
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	if _, err := h.auth.Register(c.Request.Context(), &req); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Registration successful",
	})
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, token, int(h.tokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged in successfully",
		"token":   token,
		"user": gin.H{
			"id":       user.ID.Hex(),
			"email":    user.Email,
			"role":     user.Role,
			"userName": user.UserName,
		},
	})
}

func (h *Handler) logout(c *gin.Context) {
	c.SetCookie(tokenCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully!",
	})
}

func (h *Handler) checkAuth(c *gin.Context) {
	claims := currentClaims(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Authenticated user!",
		"user": gin.H{
			"id":       claims.ID,
			"email":    claims.Email,
			"role":     claims.Role,
			"userName": claims.UserName,
		},
	})
}

func (h *Handler) addAddress(c *gin.Context) {
	var req service.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	addr, err := h.addresses.AddAddress(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, addr)
}

func (h *Handler) listAddresses(c *gin.Context) {
	list, err := h.addresses.ListAddresses(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (h *Handler) updateAddress(c *gin.Context) {
	var req service.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	addr, err := h.addresses.UpdateAddress(c.Request.Context(), c.Param("userId"), c.Param("addressId"), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, addr)
}

func (h *Handler) deleteAddress(c *gin.Context) {
	if err := h.addresses.DeleteAddress(c.Request.Context(), c.Param("userId"), c.Param("addressId")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Address deleted successfully",
	})
}

type featureRequest struct {
	Image string `json:"image"`
}

func (h *Handler) addFeature(c *gin.Context) {
	var req featureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	feature, err := h.features.AddFeature(c.Request.Context(), req.Image)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, feature)
}

func (h *Handler) listFeatures(c *gin.Context) {
	features, err := h.features.ListFeatures(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, features)
}
