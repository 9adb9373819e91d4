package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"scribe/internal/auth"
	"scribe/internal/models"

	"gopkg.in/yaml.v3"
)

// Fixture is a hand-written data set loaded from YAML:
//
//	users:
//	  - username: ann
//	    email: ann@example.com
//	    password: secret1
//	    posts:
//	      - title: Hello
//	        content: First post
//	        date_posted: 2024-01-02T15:04:05Z
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
}

// FixtureUser is one account with its posts.
type FixtureUser struct {
	Username string        `yaml:"username"`
	Email    string        `yaml:"email"`
	Password string        `yaml:"password"`
	Image    string        `yaml:"image"`
	Posts    []FixturePost `yaml:"posts"`
}

// FixturePost is one post; a zero DatePosted means "now".
type FixturePost struct {
	Title      string    `yaml:"title"`
	Content    string    `yaml:"content"`
	DatePosted time.Time `yaml:"date_posted"`
}

// LoadFixture decodes and checks a YAML fixture.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	seen := make(map[string]bool)
	for i, u := range fx.Users {
		if u.Username == "" || u.Email == "" {
			return nil, fmt.Errorf("fixture user %d: username and email are required", i)
		}
		if seen[u.Username] {
			return nil, fmt.Errorf("fixture user %d: duplicate username %q", i, u.Username)
		}
		seen[u.Username] = true
		for j, p := range u.Posts {
			if p.Title == "" || p.Content == "" {
				return nil, fmt.Errorf("fixture user %q post %d: title and content are required", u.Username, j)
			}
		}
	}
	return &fx, nil
}

// LoadFixtureFile reads a fixture from path.
func LoadFixtureFile(path string) (*Fixture, error) {
	f, err := os.Open(path) // #nosec G304: path comes from the operator's command line
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFixture(f)
}

// ApplyFixture writes every user and post of fx. Users without a password
// get DefaultPassword.
func (s *Seeder) ApplyFixture(ctx context.Context, fx *Fixture) (*Result, error) {
	res := &Result{}
	for _, fu := range fx.Users {
		password := fu.Password
		if password == "" {
			password = DefaultPassword
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", fu.Username, err)
		}

		user, err := s.factory.CreateUser(ctx, func(u *models.User) {
			u.Username = fu.Username
			u.Email = fu.Email
			u.Password = hash
			if fu.Image != "" {
				u.Image = fu.Image
			}
		})
		if err != nil {
			return nil, fmt.Errorf("create user %s: %w", fu.Username, err)
		}
		res.Users++

		for _, fp := range fu.Posts {
			if _, err := s.factory.CreatePost(ctx, user, func(p *models.Post) {
				p.Title = fp.Title
				p.Content = fp.Content
				if fp.DatePosted.IsZero() {
					p.DatePosted = time.Now().UTC()
				} else {
					p.DatePosted = fp.DatePosted.UTC()
				}
			}); err != nil {
				return nil, fmt.Errorf("create post %q: %w", fp.Title, err)
			}
			res.Posts++
		}
	}
	return res, nil
}
