package handler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// Sections are the static page topics, each served as <section>.html.
var Sections = []string{"tasks", "habits", "timer", "courses", "analytics", "settings"}

// sendFile serves path from disk. SendFile keeps file handlers cached for a
// few seconds, so existence is checked on every request to 404 as soon as a
// page is removed.
func sendFile(path string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fiber.ErrNotFound
			}
			return err
		}
		if st.IsDir() {
			return fiber.ErrNotFound
		}
		return c.SendFile(path)
	}
}

// RegisterPages wires the entry point, the section pages and the PWA assets,
// all read from root.
func RegisterPages(app fiber.Router, root string) {
	app.Get("/", sendFile(filepath.Join(root, "index.html")))

	for _, s := range Sections {
		page := "/" + s + ".html"
		app.Get("/"+s, func(c *fiber.Ctx) error {
			return c.Redirect(page, fiber.StatusFound)
		})
		app.Get(page, sendFile(filepath.Join(root, s+".html")))
	}

	app.Get("/manifest.json", sendFile(filepath.Join(root, "static", "manifest.json")))
	app.Get("/sw.js", sendFile(filepath.Join(root, "static", "js", "sw.js")))
}
