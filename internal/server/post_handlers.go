package server

import (
	"scribe/internal/middleware"
	"scribe/internal/models"
	"scribe/internal/service"
	"scribe/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET / with the paginated feed.
func (s *Server) Home(c *fiber.Ctx) error {
	feed, err := s.postService.Feed(c.UserContext(), models.FeedQuery{
		Page: models.ParsePage(c.Query("page", "1")),
		Sort: models.ParseSortOrder(c.Query("sort")),
	})
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "home", pageData{Feed: feed})
}

// About handles GET /about
func (s *Server) About(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "about", pageData{Title: "About"})
}

// NewPostPage handles GET /posts/add
func (s *Server) NewPostPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "create_post", pageData{
		Title:  "New Post",
		Action: "/posts/add",
		Legend: "New Post",
	})
}

// CreatePost handles POST /posts/add
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	form.Normalize()

	page := pageData{
		Title:  "New Post",
		Action: "/posts/add",
		Legend: "New Post",
		Form:   formValues{Title: form.Title, Content: form.Content},
		Errors: form.Validate(),
	}
	if page.Errors.Any() {
		return s.render(c, fiber.StatusBadRequest, "create_post", page)
	}

	if _, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: middleware.UserID(c),
		Title:    form.Title,
		Content:  form.Content,
	}); err != nil {
		if models.HasCode(err, models.CodeValidation) {
			page.Errors.Add("title", err.Error())
			return s.render(c, fiber.StatusBadRequest, "create_post", page)
		}
		return failPage(c, err, "An error occurred while creating the post.")
	}

	return redirectWithFlash(c, "/", middleware.FlashSuccess, "Post added successfully!")
}

// ShowPost handles GET /post/:id
func (s *Server) ShowPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return postFailure(c, err, msgPostNotFound)
	}
	return s.render(c, fiber.StatusOK, "post", pageData{
		Title:    post.Title,
		Post:     post,
		IsAuthor: post.AuthorID == middleware.UserID(c),
	})
}

// EditPostPage handles GET /post/:id/update
func (s *Server) EditPostPage(c *fiber.Ctx) error {
	post, err := s.postService.GetPostForEdit(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return postFailure(c, err, msgPostNotFound)
	}
	return s.render(c, fiber.StatusOK, "create_post", pageData{
		Title:  "Update Post",
		Action: "/post/" + post.ID + "/update",
		Legend: "Update Post",
		Form:   formValues{Title: post.Title, Content: post.Content},
	})
}

// UpdatePost handles POST /post/:id/update
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id := c.Params("id")

	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	form.Normalize()

	page := pageData{
		Title:  "Update Post",
		Action: "/post/" + id + "/update",
		Legend: "Update Post",
		Form:   formValues{Title: form.Title, Content: form.Content},
		Errors: form.Validate(),
	}
	if page.Errors.Any() {
		// Ownership is checked before echoing the form back.
		if _, err := s.postService.GetPostForEdit(c.UserContext(), id, middleware.UserID(c)); err != nil {
			return postFailure(c, err, msgPostNotFound)
		}
		return s.render(c, fiber.StatusBadRequest, "create_post", page)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  middleware.UserID(c),
		PostID:  id,
		Title:   form.Title,
		Content: form.Content,
	})
	if err != nil {
		if models.HasCode(err, models.CodeValidation) {
			page.Errors.Add("title", err.Error())
			return s.render(c, fiber.StatusBadRequest, "create_post", page)
		}
		return postFailure(c, err, msgPostNotFound)
	}

	return redirectWithFlash(c, "/post/"+post.ID, middleware.FlashSuccess, "Post updated successfully!")
}

// DeletePost handles POST /post/:id/delete
func (s *Server) DeletePost(c *fiber.Ctx) error {
	err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: middleware.UserID(c),
		PostID: c.Params("id"),
	})
	if err != nil {
		return postFailure(c, err, "An error occurred while deleting the post.")
	}
	return redirectWithFlash(c, "/", middleware.FlashSuccess, "Post deleted successfully!")
}

// postFailure maps post lookups and ownership failures to flashes.
func postFailure(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case models.IsNotFound(err):
		return redirectWithFlash(c, "/", middleware.FlashDanger, msgPostNotFound)
	case models.HasCode(err, models.CodeUnauthorized):
		return redirectWithFlash(c, "/", middleware.FlashDanger, err.Error())
	default:
		return failPage(c, err, fallback)
	}
}
