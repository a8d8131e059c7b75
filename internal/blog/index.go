package blog

import (
	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/templates"
)

// WriteIndex renders every post through the list template into
// OutputDir/IndexSaveAs. The output directory is not created.
func (g *Generator) WriteIndex(posts []*content.Post) error {
	out, err := g.render(templates.ListTemplate, map[string]any{
		"posts":    posts,
		"sitename": g.cfg.SiteName,
	})
	if err != nil {
		return err
	}
	return g.writeFile(g.outputPath(g.cfg.IndexSaveAs), out)
}
