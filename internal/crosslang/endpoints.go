package crosslang

import (
	"bufio"
	"bytes"
	"regexp"
	"sort"
	"strings"

	"sentinel/internal/model"
)

// Endpoint is an HTTP route declared by a server or requested by a client.
type Endpoint struct {
	Method    string         `json:"method"`
	Path      string         `json:"path"`
	FilePath  string         `json:"filePath"`
	Line      int            `json:"line"`
	Language  model.Language `json:"language"`
	Symbol    string         `json:"symbol,omitempty"`
	Framework string         `json:"framework"`
	Server    bool           `json:"server"`
	Params    []string       `json:"params,omitempty"`
}

// MatchKind says how a client call was paired with a route.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchPattern MatchKind = "pattern"
	MatchPrefix  MatchKind = "prefix"
)

// Correlation pairs a client call with the server route it reaches.
type Correlation struct {
	Client     Endpoint  `json:"client"`
	Server     Endpoint  `json:"server"`
	Kind       MatchKind `json:"kind"`
	Confidence float64   `json:"confidence"`
}

// methodAny matches every HTTP method.
const methodAny = "ANY"

type endpointRule struct {
	framework string
	server    bool
	re        *regexp.Regexp
	// method is used when the rule has no method group.
	method string
}

// Each rule captures the method (or "") in group 1 and the path in group 2.
var endpointRules = []endpointRule{
	{framework: "FastAPI", server: true, re: regexp.MustCompile(`@(?:app|router)\.(get|post|put|delete|patch)\s*\(\s*["']([^"']+)["']`)},
	{framework: "Express", server: true, re: regexp.MustCompile(`\b(?:app|router|server)\.(get|post|put|delete|patch)\s*\(\s*["'` + "`" + `]([^"'` + "`" + `]+)`)},
	{framework: "Flask", server: true, re: regexp.MustCompile(`@(?:app|bp|blueprint)\.route\s*\(\s*()["']([^"']+)["']`), method: "GET"},
	{framework: "Gin", server: true, re: regexp.MustCompile(`\b\w+\.(GET|POST|PUT|DELETE|PATCH)\s*\(\s*"([^"]+)"`)},
	{framework: "net/http", server: true, re: regexp.MustCompile(`\bHandle(?:Func)?\s*\(\s*()"((?:[A-Z]+ )?/[^"]*)"`), method: methodAny},
	{framework: "Axum", server: true, re: regexp.MustCompile(`\.route\s*\(\s*()"([^"]+)"\s*,\s*(?:get|post|put|delete|patch)`), method: methodAny},
	{framework: "Spring", server: true, re: regexp.MustCompile(`@(Get|Post|Put|Delete|Patch)Mapping\s*\(\s*(?:value\s*=\s*|path\s*=\s*)?"([^"]+)"`)},

	{framework: "Fetch API", re: regexp.MustCompile(`\bfetch\s*\(\s*()["'` + "`" + `]([^"'` + "`" + `]+)`), method: "GET"},
	{framework: "Axios", re: regexp.MustCompile(`\baxios\.(get|post|put|delete|patch)\s*\(\s*["'` + "`" + `]([^"'` + "`" + `]+)`)},
	{framework: "Requests", re: regexp.MustCompile(`\b(?:requests|httpx)\.(get|post|put|delete|patch)\s*\(\s*f?["']([^"']+)["']`)},
	{framework: "Reqwest", re: regexp.MustCompile(`\breqwest::(?:blocking::)?(get)\s*\(\s*"([^"]+)"`)},
	{framework: "Reqwest", re: regexp.MustCompile(`\bclient\.(get|post|put|delete|patch)\s*\(\s*"(https?://[^"]+)"`)},
	{framework: "net/http", re: regexp.MustCompile(`\bhttp\.(Get|Post|Head)\s*\(\s*"([^"]+)"`)},
	{framework: "net/http", re: regexp.MustCompile(`\bhttp\.NewRequest(?:WithContext)?\s*\([^"]*"([A-Z]+)"\s*,\s*"([^"]+)"`)},
}

var (
	reURLParam    = regexp.MustCompile(`:\w+|\{\w+\}|<(?:\w+:)?\w+>|\$\{[^}]+\}`)
	reFetchMethod = regexp.MustCompile(`method\s*:\s*["'](\w+)["']`)
	reFlaskMethod = regexp.MustCompile(`methods\s*=\s*\[\s*["'](\w+)["']`)
)

// EndpointCorrelator collects routes and client calls across files and
// pairs them.
type EndpointCorrelator struct {
	endpoints []Endpoint
}

// NewEndpointCorrelator creates an empty correlator.
func NewEndpointCorrelator() *EndpointCorrelator {
	return &EndpointCorrelator{}
}

// Name identifies the detector.
func (c *EndpointCorrelator) Name() string {
	return "endpoints"
}

// Add scans f and records its endpoints. It returns the endpoints found.
func (c *EndpointCorrelator) Add(f SourceFile) []Endpoint {
	var found []Endpoint
	scanner := bufio.NewScanner(bytes.NewReader(f.Content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if isCommentLine(line, f.Language) {
			continue
		}
		for _, rule := range endpointRules {
			m := rule.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			method := strings.ToUpper(m[1])
			if method == "" {
				method = rule.method
			}
			path := m[2]
			switch rule.framework {
			case "Flask":
				if mm := reFlaskMethod.FindStringSubmatch(line); mm != nil {
					method = strings.ToUpper(mm[1])
				}
			case "Fetch API":
				if mm := reFetchMethod.FindStringSubmatch(line); mm != nil {
					method = strings.ToUpper(mm[1])
				}
			case "net/http":
				// Go 1.22 patterns carry the method: "GET /users/{id}".
				if verb, rest, ok := strings.Cut(path, " "); ok && rule.server {
					method, path = verb, rest
				}
			}
			ep := Endpoint{
				Method:    method,
				Path:      path,
				FilePath:  f.Path,
				Line:      lineNo,
				Language:  f.Language,
				Symbol:    enclosingSymbol(f, lineNo),
				Framework: rule.framework,
				Server:    rule.server,
			}
			if ep.Server {
				ep.Params = reURLParam.FindAllString(path, -1)
			}
			found = append(found, ep)
			break
		}
	}
	c.endpoints = append(c.endpoints, found...)
	return found
}

// Endpoints returns everything recorded so far.
func (c *EndpointCorrelator) Endpoints() []Endpoint {
	return c.endpoints
}

// Correlate pairs each client call with every route it could reach, most
// confident first.
func (c *EndpointCorrelator) Correlate() []Correlation {
	var clients, servers []Endpoint
	for _, ep := range c.endpoints {
		if ep.Server {
			servers = append(servers, ep)
		} else {
			clients = append(clients, ep)
		}
	}

	var out []Correlation
	for _, cl := range clients {
		for _, sv := range servers {
			if kind, conf, ok := matchEndpoints(cl, sv); ok {
				out = append(out, Correlation{Client: cl, Server: sv, Kind: kind, Confidence: conf})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// Edges converts correlations into api_call edges from the calling symbol
// to the handling symbol.
func (c *EndpointCorrelator) Edges() []model.CrossLanguageEdge {
	var edges []model.CrossLanguageEdge
	for _, corr := range c.Correlate() {
		edges = append(edges, model.CrossLanguageEdge{
			Source:         corr.Client.Symbol,
			Target:         corr.Server.Symbol,
			SourceLanguage: corr.Client.Language,
			TargetLanguage: corr.Server.Language,
			Type:           model.ConnAPICall,
			Weight:         corr.Confidence,
			Details:        corr.Server.Method + " " + corr.Server.Path,
		})
	}
	return edges
}

func matchEndpoints(client, server Endpoint) (MatchKind, float64, bool) {
	if client.Method != server.Method && server.Method != methodAny && client.Method != methodAny {
		return "", 0, false
	}
	clientPath := pathFromURL(client.Path)
	serverPath := server.Path

	switch {
	case clientPath == serverPath:
		return MatchExact, 0.95, true
	case matchesPattern(clientPath, serverPath):
		return MatchPattern, 0.85, true
	}
	sBase, cBase := basePath(serverPath), basePath(clientPath)
	if len(sBase) > 1 && strings.HasPrefix(clientPath, sBase) || len(cBase) > 1 && strings.HasPrefix(serverPath, cBase) {
		return MatchPrefix, 0.6, true
	}
	return "", 0, false
}

// matchesPattern reports whether a concrete client path fits a server route
// with parameters.
func matchesPattern(clientPath, serverPath string) bool {
	params := reURLParam.FindAllStringIndex(serverPath, -1)
	if len(params) == 0 {
		return false
	}
	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range params {
		b.WriteString(regexp.QuoteMeta(serverPath[last:loc[0]]))
		b.WriteString(`[^/]+`)
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(serverPath[last:]))
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(reURLParam.ReplaceAllString(clientPath, "x"))
}

// basePath is the part of a route before its first parameter.
func basePath(p string) string {
	if loc := reURLParam.FindStringIndex(p); loc != nil {
		return p[:loc[0]]
	}
	return p
}

// pathFromURL strips scheme, host and query from a URL.
func pathFromURL(url string) string {
	if strings.HasPrefix(url, "/") {
		return stripQuery(url)
	}
	if i := strings.Index(url, "://"); i >= 0 {
		rest := url[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			return stripQuery(rest[j:])
		}
		return "/"
	}
	// A ${BASE_URL}/users template keeps only the path.
	if strings.HasPrefix(url, "${") {
		if j := strings.Index(url, "}"); j >= 0 {
			return pathFromURL(url[j+1:])
		}
	}
	if j := strings.Index(url, "/"); j > 0 && strings.Contains(url[:j], ":") {
		return stripQuery(url[j:])
	}
	return stripQuery(url)
}

func stripQuery(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

