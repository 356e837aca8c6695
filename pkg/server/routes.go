package server

import (
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Reeceeboii/calligraphy-site/pkg/config"
)

// A path bound to the handler that answers it
type Route struct {
	// used in logs
	Name string
	// exact path the route matches
	Path string
	// produces the response
	Handler http.HandlerFunc
	// whether the response is a file that browsers may cache
	Cacheable bool
}

const staticPrefix = "/static/"

// The fixed route table. Built once in NewServer and never changed afterwards
func (s *Server) routes() []Route {
	return []Route{
		{Name: "homepage", Path: "/", Handler: s.Root},
		{Name: "verification", Path: "/" + s.Config.VerificationFile, Handler: s.VerificationFile, Cacheable: true},
		{Name: "sitemap", Path: "/" + config.SitemapFile, Handler: s.Sitemap, Cacheable: true},
	}
}

// Serve the homepage, rendered once at startup
func (s *Server) Root(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.Write(s.homepage)
}

// Serve the search engine verification file byte for byte
func (s *Server) VerificationFile(writer http.ResponseWriter, r *http.Request) {
	s.serveFile(writer, r, filepath.Join(s.Config.SiteRoot, s.Config.VerificationFile), "")
}

// Serve the sitemap byte for byte
func (s *Server) Sitemap(writer http.ResponseWriter, r *http.Request) {
	s.serveFile(writer, r, filepath.Join(s.Config.SiteRoot, config.SitemapFile), "application/xml")
}

// Serve files under the static directory. Directories are never listed
func (s *Server) Static(writer http.ResponseWriter, r *http.Request) {
	// rooting the path before cleaning it keeps it inside the static dir
	name := path.Clean("/" + strings.TrimPrefix(r.URL.Path, staticPrefix))
	if name == "/" {
		FourOhFour(writer, r)
		return
	}
	s.serveFile(writer, r, filepath.Join(s.Config.StaticDir, filepath.FromSlash(name)), "")
}

// Write the file at name, or a 404 if there isn't one.
// An empty contentType lets it be worked out from the file extension
func (s *Server) serveFile(writer http.ResponseWriter, r *http.Request, name, contentType string) {
	file, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			FourOhFour(writer, r)
			return
		}
		log.Printf("Error opening %s: %s", name, err.Error())
		http.Error(writer, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Printf("Error reading %s: %s", name, err.Error())
		http.Error(writer, "Internal server error", http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		FourOhFour(writer, r)
		return
	}

	if contentType != "" {
		writer.Header().Set("Content-Type", contentType)
	}
	http.ServeContent(writer, r, info.Name(), info.ModTime(), file)
}

// 404 route, shared by unknown paths and missing files so the two look the same
func FourOhFour(w http.ResponseWriter, _ *http.Request) {
	w.Header().Del("Cache-Control")
	http.Error(w, "Not found", http.StatusNotFound)
}

// 405 route, for known paths requested with anything but GET or HEAD
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
