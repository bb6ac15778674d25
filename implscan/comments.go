package implscan

import (
	"context"
	"fmt"
	goparser "go/parser"
	"go/token"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// commentNodeTypes covers the comment node names across the supported
// grammars. Python, JavaScript and TypeScript use "comment"; Java splits
// line and block comments into separate node types.
var commentNodeTypes = map[string]bool{
	"comment":       true,
	"line_comment":  true,
	"block_comment": true,
}

func supportedExt(ext string) bool {
	switch ext {
	case ".go", ".py", ".js", ".jsx", ".mjs", ".cjs", ".ts", ".mts", ".cts", ".tsx", ".java":
		return true
	}
	return false
}

// goComments extracts comments with the standard library parser so Go
// sources never go through a grammar binding.
func goComments(path string, content []byte, collect func(text string, line int)) error {
	fset := token.NewFileSet()
	file, err := goparser.ParseFile(fset, path, content, goparser.ParseComments)
	if err != nil {
		return fmt.Errorf("parse go file: %w", err)
	}
	for _, group := range file.Comments {
		for _, c := range group.List {
			collect(c.Text, fset.Position(c.Slash).Line)
		}
	}
	return nil
}

func sitterComments(ctx context.Context, ext string, content []byte, collect func(text string, line int)) error {
	lang := grammarFor(ext)
	if lang == nil {
		return fmt.Errorf("no grammar for %s", ext)
	}

	p := sitter.NewParser()
	p.SetLanguage(lang)
	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("parse %s file: %w", ext, err)
	}
	defer tree.Close()

	walkComments(tree.RootNode(), content, collect)
	return nil
}

func grammarFor(ext string) *sitter.Language {
	switch ext {
	case ".py":
		return python.GetLanguage()
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	case ".java":
		return java.GetLanguage()
	}
	return nil
}

func walkComments(n *sitter.Node, content []byte, collect func(text string, line int)) {
	if n == nil {
		return
	}
	if commentNodeTypes[n.Type()] {
		collect(n.Content(content), int(n.StartPoint().Row)+1)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walkComments(n.Child(i), content, collect)
	}
}
