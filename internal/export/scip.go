package export

import (
	"os"
	"sort"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"sentinel/internal/errors"
	"sentinel/internal/model"
	"sentinel/internal/version"
)

// scipScheme is the scheme prefix of every exported SCIP symbol.
const scipScheme = "sentinel"

// SCIPOptions describes the project an index is exported for.
type SCIPOptions struct {
	ProjectName string
	ProjectRoot string
}

// BuildSCIP converts a snapshot into a SCIP index with one document per
// file. Definitions become definition occurrences, calls and field accesses
// become reference occurrences at their source line, and inheritance edges
// become SCIP relationships.
func BuildSCIP(snap *model.Snapshot, opts SCIPOptions) *scippb.Index {
	index := &scippb.Index{
		Metadata: &scippb.Metadata{
			Version: scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scippb.ToolInfo{
				Name:    "sentinel",
				Version: version.Version,
			},
			ProjectRoot:          "file://" + opts.ProjectRoot,
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
		},
	}

	docs := make(map[string]*scippb.Document)
	infos := make(map[string]*scippb.SymbolInformation)
	scipSymbol := make(map[string]string)

	for _, s := range snap.Symbols() {
		if s.HasTag("virtual") || s.FilePath == "" {
			continue
		}
		doc := docs[s.FilePath]
		if doc == nil {
			doc = &scippb.Document{RelativePath: s.FilePath, Language: string(s.Language)}
			docs[s.FilePath] = doc
		}
		sym := SCIPSymbol(opts.ProjectName, s)
		scipSymbol[s.QualifiedName] = sym
		if s.ID != "" {
			scipSymbol[s.ID] = sym
		}

		role := int32(0)
		if s.IsDefinition {
			role = int32(scippb.SymbolRole_Definition)
		}
		doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
			Range:       symbolRange(s),
			Symbol:      sym,
			SymbolRoles: role,
		})
		if _, ok := infos[sym]; ok {
			continue
		}
		info := &scippb.SymbolInformation{
			Symbol:      sym,
			Kind:        scipKind(s.Kind),
			DisplayName: s.Name,
		}
		if s.Signature != "" {
			info.Documentation = []string{"```" + string(s.Language) + "\n" + s.Signature + "\n```"}
		}
		infos[sym] = info
		doc.Symbols = append(doc.Symbols, info)
	}

	for _, r := range snap.Relationships() {
		from := lookupSCIP(scipSymbol, r.FromID, r.FromName)
		to := lookupSCIP(scipSymbol, r.ToID, r.ToName)
		if from == "" || to == "" {
			continue
		}
		switch r.Type {
		case model.RelInherits, model.RelImplements:
			info := infos[from]
			info.Relationships = append(info.Relationships, &scippb.Relationship{
				Symbol:           to,
				IsImplementation: r.Type == model.RelImplements,
				IsReference:      r.Type == model.RelInherits,
			})
		case model.RelCalls, model.RelReadsField, model.RelWritesField, model.RelUses:
			if r.FilePath == "" || r.Context == nil || r.Context.Line < 1 {
				continue
			}
			doc := docs[r.FilePath]
			if doc == nil {
				continue
			}
			role := int32(0)
			switch r.Type {
			case model.RelReadsField:
				role = int32(scippb.SymbolRole_ReadAccess)
			case model.RelWritesField:
				role = int32(scippb.SymbolRole_WriteAccess)
			}
			col := int32(r.Context.Column)
			doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
				Range:       []int32{int32(r.Context.Line - 1), col, col + int32(len(shortName(r.ToName)))},
				Symbol:      to,
				SymbolRoles: role,
			})
		}
	}

	paths := make([]string, 0, len(docs))
	for p := range docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		doc := docs[p]
		sort.SliceStable(doc.Occurrences, func(i, j int) bool {
			a, b := doc.Occurrences[i].Range, doc.Occurrences[j].Range
			if a[0] != b[0] {
				return a[0] < b[0]
			}
			return a[1] < b[1]
		})
		index.Documents = append(index.Documents, doc)
	}
	return index
}

// WriteSCIPFile marshals the index to path.
func WriteSCIPFile(path string, index *scippb.Index) error {
	data, err := proto.Marshal(index)
	if err != nil {
		return errors.New(errors.InternalError, "failed to encode SCIP index", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.InternalError, "failed to write SCIP index", err).WithPath(path)
	}
	return nil
}

// ReadSCIPFile loads an index written by WriteSCIPFile.
func ReadSCIPFile(path string) (*scippb.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.FileFailed, "failed to read SCIP index", err).WithPath(path)
	}
	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, errors.New(errors.InvalidDefinition, "failed to parse SCIP index", err).WithPath(path)
	}
	return &index, nil
}

// SCIPSymbol builds the SCIP symbol string of s:
// "sentinel . <project> . <descriptors>".
func SCIPSymbol(project string, s model.Symbol) string {
	if project == "" {
		project = "."
	}
	var b strings.Builder
	b.WriteString(scipScheme)
	b.WriteString(" . ")
	b.WriteString(strings.ReplaceAll(project, " ", "  "))
	b.WriteString(" . ")

	parts := splitQualified(s)
	for _, p := range parts[:len(parts)-1] {
		b.WriteString(escapeDescriptor(p))
		b.WriteByte('/')
	}
	name := escapeDescriptor(parts[len(parts)-1])
	switch {
	case s.Kind.IsType():
		b.WriteString(name + "#")
	case s.Kind.IsCallable():
		b.WriteString(name + "().")
	case s.Kind == model.KindNamespace || s.Kind == model.KindModule:
		b.WriteString(name + "/")
	default:
		b.WriteString(name + ".")
	}
	return b.String()
}

func splitQualified(s model.Symbol) []string {
	qn := s.QualifiedName
	if qn == "" {
		qn = s.Name
	}
	sep := model.ScopeSeparator(s.Language)
	var parts []string
	for _, p := range strings.Split(qn, sep) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = []string{"_"}
	}
	return parts
}

// escapeDescriptor wraps names that are not simple identifiers in
// backticks, doubling any backtick inside.
func escapeDescriptor(name string) string {
	simple := name != ""
	for _, r := range name {
		if !(r == '_' || r == '+' || r == '-' || r == '$' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			simple = false
			break
		}
	}
	if simple {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func scipKind(k model.SymbolKind) scippb.SymbolInformation_Kind {
	switch k {
	case model.KindClass:
		return scippb.SymbolInformation_Class
	case model.KindStruct:
		return scippb.SymbolInformation_Struct
	case model.KindFunction:
		return scippb.SymbolInformation_Function
	case model.KindMethod:
		return scippb.SymbolInformation_Method
	case model.KindConstructor:
		return scippb.SymbolInformation_Constructor
	case model.KindField:
		return scippb.SymbolInformation_Field
	case model.KindVariable:
		return scippb.SymbolInformation_Variable
	case model.KindNamespace:
		return scippb.SymbolInformation_Namespace
	case model.KindEnum:
		return scippb.SymbolInformation_Enum
	case model.KindTypedef:
		return scippb.SymbolInformation_TypeAlias
	case model.KindInterface:
		return scippb.SymbolInformation_Interface
	case model.KindModule:
		return scippb.SymbolInformation_Module
	}
	return scippb.SymbolInformation_UnspecifiedKind
}

// symbolRange is the zero-based [line, startCol, endCol] of the name.
func symbolRange(s model.Symbol) []int32 {
	line := int32(s.Line - 1)
	if line < 0 {
		line = 0
	}
	col := int32(s.Column)
	return []int32{line, col, col + int32(len(s.Name))}
}

func lookupSCIP(m map[string]string, id, name string) string {
	if id != "" {
		if s, ok := m[id]; ok {
			return s
		}
	}
	return m[name]
}

func shortName(qn string) string {
	if i := strings.LastIndexAny(qn, ".:"); i >= 0 {
		return qn[i+1:]
	}
	return qn
}
