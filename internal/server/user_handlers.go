package server

import (
	"scribe/internal/models"

	"github.com/gofiber/fiber/v2"
)

// APIPosts handles GET /api/posts
// @Summary List posts
// @Description Get every post with its author's username and email, newest first
// @Tags posts
// @Produce json
// @Success 200 {array} models.APIPost
// @Failure 500 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) APIPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListAPIPosts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// APIUsers handles GET /api/users
// @Summary List users
// @Description Get every user without password hash or storage id
// @Tags users
// @Produce json
// @Success 200 {array} models.PublicUser
// @Failure 500 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) APIUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// APIUserPosts handles GET /api/users/:id/posts
// @Summary List a user's posts
// @Description Get the posts written by one user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {array} models.APIPost
// @Failure 404 {object} object{error=string}
// @Failure 500 {object} models.ErrorResponse
// @Router /users/{id}/posts [get]
func (s *Server) APIUserPosts(c *fiber.Ctx) error {
	posts, err := s.postService.GetUserPosts(c.UserContext(), c.Params("id"))
	if err != nil {
		if models.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return respondError(c, err)
	}
	return c.JSON(posts)
}
