package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserGet - справочник: пользователь по идентификатору
func UserGet(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	user, err := userService.GetByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.View()})
}

// UserSearch - поиск пользователей по префиксу имени
func UserSearch(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A 'name' query parameter is required"})
		return
	}

	limit := 50
	offset := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	users, err := userService.Search(c.Request.Context(), name, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
