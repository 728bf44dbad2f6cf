package index

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	genericChunkBudget  = 1000
	genericOverlapLines = 2
	maxIndexableSize    = 1 << 20
)

var skipDirs = map[string]bool{
	"node_modules":  true,
	"__pycache__":   true,
	".git":          true,
	".svn":          true,
	".hg":           true,
	"build":         true,
	"dist":          true,
	"target":        true,
	"bin":           true,
	"obj":           true,
	".vscode":       true,
	".idea":         true,
	".pytest_cache": true,
	".mypy_cache":   true,
	".tox":          true,
	"venv":          true,
	"env":           true,
	"virtualenv":    true,
}

var binaryExtensions = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true,
	".o": true, ".obj": true, ".bin": true, ".class": true, ".jar": true,
	".war": true, ".pyc": true, ".pyo": true, ".wasm": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".svg": true, ".webp": true, ".tiff": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	".flac": true, ".ogg": true, ".mkv": true, ".webm": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
	".rar": true, ".7z": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true, ".eot": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
}

var hiddenAllowList = map[string]bool{
	".env":           true,
	".gitignore":     true,
	".gitattributes": true,
	".dockerignore":  true,
}

// ShouldIndexFile reports whether a file belongs in the index. Hidden paths
// are skipped unless the filename is on the allow-list, known binary
// extensions and generated directories are skipped, and files over 1 MiB
// are skipped.
func ShouldIndexFile(path string) bool {
	base := filepath.Base(path)
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if skipDirs[part] {
			return false
		}
		if strings.HasPrefix(part, ".") && !hiddenAllowList[part] {
			return false
		}
	}
	if binaryExtensions[strings.ToLower(filepath.Ext(base))] {
		return false
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() || info.Size() > maxIndexableSize {
			return false
		}
	}
	return true
}

// ChunkFile splits file content into indexable chunks. It never fails: a
// Go parse error falls back to generic chunking, and empty or
// whitespace-only content yields nil.
func ChunkFile(path string, content []byte) []Chunk {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lang := DetectLanguage(path, content)

	var chunks []Chunk
	if lang == "go" {
		chunks = chunkGo(path, text)
	}
	if chunks == nil {
		chunks = chunkGeneric(path, text, lang)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartLine < chunks[j].StartLine })
	return chunks
}

// chunkGo extracts top-level declarations with go/ast. Returns nil when the
// file does not parse so the caller can fall back to generic chunking.
func chunkGo(path, content string) []Chunk {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return nil
	}

	lines := strings.Split(content, "\n")
	covered := make([]bool, len(lines)+1)

	// Receiver methods grouped by type name, for class metadata.
	methodsByType := make(map[string][]string)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
			continue
		}
		if name := receiverTypeName(fn.Recv.List[0].Type); name != "" {
			methodsByType[name] = append(methodsByType[name], fn.Name.Name)
		}
	}

	var chunks []Chunk
	emit := func(start, end int, chunkType string, meta map[string]any) {
		if start < 1 {
			start = 1
		}
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, Chunk{
			Content:   extractLines(lines, start, end),
			StartLine: start,
			EndLine:   end,
			Type:      chunkType,
			Language:  "go",
			FilePath:  path,
			Metadata:  meta,
		})
		for i := start; i <= end && i < len(covered); i++ {
			covered[i] = true
		}
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			start := fset.Position(d.Pos()).Line
			if d.Doc != nil {
				start = fset.Position(d.Doc.Pos()).Line
			}
			end := fset.Position(d.End()).Line
			chunkType := ChunkFunction
			if d.Recv != nil {
				chunkType = ChunkMethod
			}
			meta := map[string]any{
				"name": d.Name.Name,
				"args": paramNames(d.Type),
			}
			if d.Doc != nil {
				meta["docstring"] = strings.TrimSpace(d.Doc.Text())
			}
			emit(start, end, chunkType, meta)
		case *ast.GenDecl:
			start := fset.Position(d.Pos()).Line
			if d.Doc != nil {
				start = fset.Position(d.Doc.Pos()).Line
			}
			end := fset.Position(d.End()).Line
			switch d.Tok {
			case token.TYPE:
				for _, spec := range d.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					meta := map[string]any{"name": ts.Name.Name}
					if methods := methodsByType[ts.Name.Name]; len(methods) > 0 {
						meta["methods"] = methods
					}
					if bases := embeddedTypes(ts.Type); len(bases) > 0 {
						meta["bases"] = bases
					}
					emit(start, end, ChunkClass, meta)
				}
			case token.IMPORT:
				emit(start, end, ChunkImport, nil)
			}
		}
	}

	// Gap-fill: every uncovered non-blank run becomes a text chunk so the
	// chunks jointly cover the file.
	gapStart := 0
	for line := 1; line <= len(lines); line++ {
		uncovered := line <= len(lines) && !lineCovered(covered, line)
		if uncovered && gapStart == 0 {
			gapStart = line
		}
		if (!uncovered || line == len(lines)) && gapStart > 0 {
			gapEnd := line - 1
			if uncovered && line == len(lines) {
				gapEnd = line
			}
			if start, end, ok := trimBlankLines(lines, gapStart, gapEnd); ok {
				chunks = append(chunks, Chunk{
					Content:   extractLines(lines, start, end),
					StartLine: start,
					EndLine:   end,
					Type:      ChunkText,
					Language:  "go",
					FilePath:  path,
					Metadata:  map[string]any{"line_count": end - start + 1},
				})
			}
			gapStart = 0
		}
	}

	return chunks
}

func lineCovered(covered []bool, line int) bool {
	return line < len(covered) && covered[line]
}

// trimBlankLines narrows [start, end] to its non-blank core.
func trimBlankLines(lines []string, start, end int) (int, int, bool) {
	for start <= end && strings.TrimSpace(lines[start-1]) == "" {
		start++
	}
	for end >= start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return start, end, start <= end
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	}
	return ""
}

func paramNames(ft *ast.FuncType) []string {
	var names []string
	if ft.Params == nil {
		return names
	}
	for _, field := range ft.Params.List {
		for _, name := range field.Names {
			names = append(names, name.Name)
		}
	}
	return names
}

func embeddedTypes(expr ast.Expr) []string {
	var bases []string
	st, ok := expr.(*ast.StructType)
	if !ok || st.Fields == nil {
		return bases
	}
	for _, field := range st.Fields.List {
		if len(field.Names) != 0 {
			continue
		}
		if name := receiverTypeName(field.Type); name != "" {
			bases = append(bases, name)
		}
	}
	return bases
}

// chunkGeneric windows lines under a character budget, carrying a fixed
// overlap of trailing lines into the next chunk.
func chunkGeneric(path, content, lang string) []Chunk {
	lines := strings.Split(content, "\n")
	var chunks []Chunk

	emit := func(start, end int) {
		body := extractLines(lines, start, end)
		if strings.TrimSpace(body) == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Content:   body,
			StartLine: start,
			EndLine:   end,
			Type:      ChunkText,
			Language:  lang,
			FilePath:  path,
			Metadata:  map[string]any{"line_count": end - start + 1},
		})
	}

	start := 1
	size := 0
	for i, line := range lines {
		lineNo := i + 1
		cost := len(line) + 1
		if size > 0 && size+cost > genericChunkBudget {
			emit(start, lineNo-1)
			overlapStart := lineNo - genericOverlapLines
			if overlapStart < start+1 {
				overlapStart = start + 1
			}
			start = overlapStart
			size = 0
			for j := start; j < lineNo; j++ {
				size += len(lines[j-1]) + 1
			}
		}
		size += cost
	}
	emit(start, len(lines))

	return chunks
}

// extractLines returns lines start..end inclusive, 1-based.
func extractLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
