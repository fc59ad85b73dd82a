package templatecollection

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// Collection renders named pages. A page called "page_x" lives in
// page_x.gohtml, defines a template of the same name, and can use anything
// defined in layout.gohtml and shared_*.gohtml.
type Collection interface {
	ExecuteTemplate(wr io.Writer, name string, data interface{}) error
}

var ErrTemplateNotFound = fmt.Errorf("template not found")

// parsePage builds the template set for one page. Files are matched at the
// top of fileSystem or one directory down, so an embedded "templates"
// directory works as well as os.DirFS("templates").
func parsePage(fileSystem fs.FS, funcs template.FuncMap, name, pageFile string) (*template.Template, error) {
	var fileNames []string

	for _, pattern := range []string{pageFile, "layout.gohtml", "shared_*.gohtml"} {
		for _, p := range []string{pattern, "*/" + pattern} {
			names, err := fs.Glob(fileSystem, p)
			if err != nil {
				return nil, fmt.Errorf("could not get names for pattern %q: %w", p, err)
			}

			fileNames = append(fileNames, names...)
		}
	}

	tpl := template.New(name)
	if funcs != nil {
		tpl = tpl.Funcs(funcs)
	}

	if _, err := tpl.ParseFS(fileSystem, fileNames...); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", name, err)
	}

	return tpl, nil
}

// Cached parses every page once, up front.
type Cached struct {
	l sync.RWMutex
	m map[string]*template.Template
}

func NewCached(fileSystem fs.FS, funcs template.FuncMap) (*Cached, error) {
	var pageFiles []string
	for _, p := range []string{"page_*.gohtml", "*/page_*.gohtml"} {
		names, err := fs.Glob(fileSystem, p)
		if err != nil {
			return nil, fmt.Errorf("templatecollection.NewCached: could not get page template names: %w", err)
		}

		pageFiles = append(pageFiles, names...)
	}

	c := Cached{m: make(map[string]*template.Template)}

	for _, pageFile := range pageFiles {
		name := strings.TrimSuffix(path.Base(pageFile), ".gohtml")

		tpl, err := parsePage(fileSystem, funcs, name, path.Base(pageFile))
		if err != nil {
			return nil, fmt.Errorf("templatecollection.NewCached: %w", err)
		}

		c.m[name] = tpl
	}

	return &c, nil
}

func (c *Cached) ExecuteTemplate(wr io.Writer, name string, data interface{}) error {
	c.l.RLock()
	tpl, ok := c.m[name]
	c.l.RUnlock()

	if !ok {
		return fmt.Errorf("templatecollection.Cached.ExecuteTemplate: %q: %w", name, ErrTemplateNotFound)
	}

	if err := tpl.ExecuteTemplate(wr, name, data); err != nil {
		return fmt.Errorf("templatecollection.Cached.ExecuteTemplate: %w", err)
	}

	return nil
}

// Live parses the page on every call, for editing templates on disk while
// the server runs.
type Live struct {
	fs fs.FS
	m  template.FuncMap
}

func NewLive(fileSystem fs.FS, funcs template.FuncMap) (*Live, error) {
	return &Live{fs: fileSystem, m: funcs}, nil
}

func (l *Live) ExecuteTemplate(wr io.Writer, name string, data interface{}) error {
	tpl, err := parsePage(l.fs, l.m, name, name+".gohtml")
	if err != nil {
		return fmt.Errorf("templatecollection.Live.ExecuteTemplate: %w", err)
	}

	if err := tpl.ExecuteTemplate(wr, name, data); err != nil {
		return fmt.Errorf("templatecollection.Live.ExecuteTemplate: %w", err)
	}

	return nil
}
