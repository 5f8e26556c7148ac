package symbols

import (
	"bytes"
	"sort"
	"strconv"

	"sentinel/internal/model"
)

// Chunk is a byte range of a file parsed as one unit.
type Chunk struct {
	Index     int
	Start     int
	End       int
	StartLine int
	// Overlap marks a chunk straddling the boundary between two main chunks.
	Overlap bool
	// After is the index of the main chunk the overlap chunk follows.
	After int
}

// ChunkOptions controls splitting.
type ChunkOptions struct {
	Threshold int
	Overlap   int
	Lookahead int
}

// SplitChunks splits content into main chunks of roughly Threshold bytes,
// snapping each boundary forward to the next newline, semicolon or brace
// within Lookahead bytes. An overlap chunk of Overlap bytes centered on every
// boundary is returned after the main chunk it follows.
func SplitChunks(content []byte, opts ChunkOptions) []Chunk {
	if opts.Threshold <= 0 || len(content) <= opts.Threshold {
		return []Chunk{{Index: 0, Start: 0, End: len(content), StartLine: 1, After: -1}}
	}

	var boundaries []int
	pos := 0
	for len(content)-pos > opts.Threshold {
		b := snapBoundary(content, pos+opts.Threshold, opts.Lookahead)
		if b <= pos {
			b = pos + opts.Threshold
		}
		boundaries = append(boundaries, b)
		pos = b
	}

	var chunks []Chunk
	start := 0
	mainIndex := 0
	for i := 0; i <= len(boundaries); i++ {
		end := len(content)
		if i < len(boundaries) {
			end = boundaries[i]
		}
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Start:     start,
			End:       end,
			StartLine: lineAt(content, start),
			After:     -1,
		})
		mainIndex = len(chunks) - 1

		if i < len(boundaries) && opts.Overlap > 0 {
			half := opts.Overlap / 2
			oStart := lineStart(content, maxInt(start, end-half))
			oEnd := minInt(len(content), end+half)
			chunks = append(chunks, Chunk{
				Index:     len(chunks),
				Start:     oStart,
				End:       oEnd,
				StartLine: lineAt(content, oStart),
				Overlap:   true,
				After:     mainIndex,
			})
		}
		start = end
	}
	return chunks
}

// snapBoundary moves pos forward to just after the first statement
// delimiter found within lookahead bytes. Without one, pos is kept.
func snapBoundary(content []byte, pos, lookahead int) int {
	if pos >= len(content) {
		return len(content)
	}
	limit := minInt(len(content), pos+lookahead)
	for i := pos; i < limit; i++ {
		switch content[i] {
		case '\n', ';', '{', '}':
			return i + 1
		}
	}
	return pos
}

// lineStart returns the offset of the start of the line containing pos.
func lineStart(content []byte, pos int) int {
	if pos <= 0 {
		return 0
	}
	i := bytes.LastIndexByte(content[:pos], '\n')
	return i + 1
}

// lineAt returns the 1-based line number of offset pos.
func lineAt(content []byte, pos int) int {
	return bytes.Count(content[:pos], []byte{'\n'}) + 1
}

// chunkResult is the raw output of scanning one chunk.
type chunkResult struct {
	symbols       []model.Symbol
	relationships []model.Relationship
	imports       []string
	exports       []string
	namespaces    []string
	parseErrors   int
	overlap       bool
}

// mergeResults appends every main chunk result as it is, then merges the
// overlap results against all of them, dropping what was already seen:
// callables match on name and kind within tolerance lines, types on name and
// namespace. An overlap is checked against the main chunks on both sides of
// its boundary. Symbols come out in line order.
func mergeResults(results []chunkResult, tolerance int) chunkResult {
	var merged chunkResult
	seenRel := make(map[string]bool)
	seenImport := make(map[string]bool)
	seenExport := make(map[string]bool)
	seenNS := make(map[string]bool)

	for _, r := range results {
		if r.overlap {
			continue
		}
		merged.symbols = append(merged.symbols, r.symbols...)
		for _, rel := range r.relationships {
			seenRel[relationshipKey(rel)] = true
		}
		merged.relationships = append(merged.relationships, r.relationships...)
		merged.imports = appendAll(merged.imports, r.imports, seenImport)
		merged.exports = appendAll(merged.exports, r.exports, seenExport)
		merged.namespaces = appendAll(merged.namespaces, r.namespaces, seenNS)
		merged.parseErrors += r.parseErrors
	}

	for _, r := range results {
		if !r.overlap {
			continue
		}
		for _, sym := range r.symbols {
			if isDuplicate(merged.symbols, sym, tolerance) {
				continue
			}
			merged.symbols = append(merged.symbols, sym)
		}
		for _, rel := range r.relationships {
			k := relationshipKey(rel)
			if seenRel[k] {
				continue
			}
			seenRel[k] = true
			merged.relationships = append(merged.relationships, rel)
		}
		merged.imports = appendUnique(merged.imports, r.imports, seenImport)
		merged.exports = appendUnique(merged.exports, r.exports, seenExport)
		merged.namespaces = appendUnique(merged.namespaces, r.namespaces, seenNS)
	}

	sort.SliceStable(merged.symbols, func(i, j int) bool {
		return merged.symbols[i].Line < merged.symbols[j].Line
	})
	return merged
}

func relationshipKey(rel model.Relationship) string {
	k := rel.Key()
	if rel.Context != nil {
		k += "@" + strconv.Itoa(rel.Context.Line)
	}
	return k
}

func isDuplicate(existing []model.Symbol, sym model.Symbol, tolerance int) bool {
	for _, e := range existing {
		if e.Name != sym.Name || e.Kind != sym.Kind {
			continue
		}
		if sym.Kind.IsType() || sym.Kind == model.KindNamespace {
			if e.Namespace == sym.Namespace {
				return true
			}
			continue
		}
		if absInt(e.Line-sym.Line) <= tolerance {
			return true
		}
	}
	return false
}

func appendAll(dst, src []string, seen map[string]bool) []string {
	for _, s := range src {
		seen[s] = true
	}
	return append(dst, src...)
}

func appendUnique(dst, src []string, seen map[string]bool) []string {
	for _, s := range src {
		if seen[s] {
			continue
		}
		seen[s] = true
		dst = append(dst, s)
	}
	return dst
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
