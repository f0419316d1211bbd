package keys

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidNamespace indicates a namespace outside the closed category
	// set. This is a programming error at the call site, not an
	// environmental condition.
	ErrInvalidNamespace = errors.New("keys: invalid namespace")

	// ErrEmptyQuery indicates a blank primary query string.
	ErrEmptyQuery = errors.New("keys: empty query")

	// ErrInvalidParamValue indicates a parameter value containing a key
	// delimiter or glob character. Values are rejected rather than escaped
	// so that keys remain safe to use in pattern scans.
	ErrInvalidParamValue = errors.New("keys: invalid parameter value")
)

// Namespace is a category of cached data. Each namespace has its own TTL
// policy and its own key prefix, so whole categories can be invalidated
// with a single pattern.
type Namespace string

const (
	NamespaceChat    Namespace = "chat"
	NamespaceSearch  Namespace = "search"
	NamespaceArticle Namespace = "article"
	NamespaceExplain Namespace = "explanation"
)

// Valid reports whether n is one of the recognized namespaces.
func (n Namespace) Valid() bool {
	switch n {
	case NamespaceChat, NamespaceSearch, NamespaceArticle, NamespaceExplain:
		return true
	}
	return false
}

// Pattern returns the glob matching every key in the namespace,
// e.g. "chat:*".
func (n Namespace) Pattern() string {
	return string(n) + ":*"
}

// Namespaces returns the closed set of recognized namespaces.
func Namespaces() []Namespace {
	return []Namespace{NamespaceChat, NamespaceSearch, NamespaceArticle, NamespaceExplain}
}

type pair struct {
	name  string
	value string
}

// KeyParams is the set of auxiliary parameters that affect a cached result.
// Implementations are one struct per namespace so that the parameters a
// call site must supply are checked at compile time. The interface is
// sealed: the pairs method is unexported, so only this package can add
// namespaces.
//
// Every attribute that influences the computed result must appear in the
// params for its namespace; omitting one silently serves stale results
// across requests that should not share an entry.
type KeyParams interface {
	Namespace() Namespace

	// pairs returns the name=value pairs to append to the key, in
	// ascending name order. Zero values are omitted entirely by BuildKey.
	pairs() []pair
}

// ChatParams identifies a chat completion: which model produced it and
// which language it was answered in.
type ChatParams struct {
	Model string
	Lang  string
}

func (ChatParams) Namespace() Namespace { return NamespaceChat }

func (p ChatParams) pairs() []pair {
	return []pair{{"lang", p.Lang}, {"model", p.Model}}
}

// SearchParams identifies a semantic search result set. A zero Limit is
// omitted from the key.
type SearchParams struct {
	Lang  string
	Limit int
}

func (SearchParams) Namespace() Namespace { return NamespaceSearch }

func (p SearchParams) pairs() []pair {
	var limit string
	if p.Limit > 0 {
		limit = strconv.Itoa(p.Limit)
	}
	return []pair{{"lang", p.Lang}, {"limit", limit}}
}

// ArticleParams identifies an article detail lookup.
type ArticleParams struct {
	Lang string
}

func (ArticleParams) Namespace() Namespace { return NamespaceArticle }

func (p ArticleParams) pairs() []pair {
	return []pair{{"lang", p.Lang}}
}

// ExplainParams identifies a generated article explanation.
type ExplainParams struct {
	Model string
	Lang  string
}

func (ExplainParams) Namespace() Namespace { return NamespaceExplain }

func (p ExplainParams) pairs() []pair {
	return []pair{{"lang", p.Lang}, {"model", p.Model}}
}

// Fingerprint returns a fixed-width 16 hex character digest of the query.
// Queries are normalized (trimmed, lowercased) first, so "What is Article 5?"
// and " what is article 5? " fingerprint identically.
func Fingerprint(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalized))
}

// BuildKey constructs the cache key for a query within a namespace:
//
//	namespace:fingerprint:name=value:name=value
//
// The query text is hashed rather than embedded, bounding key length and
// keeping raw query text out of the pattern-scan key space. Parameters are
// appended in ascending name order and zero-valued parameters are omitted
// entirely, so logically equivalent requests always produce byte-identical
// keys regardless of call-site ordering.
//
// BuildKey is a pure function. It returns an error only for contract
// violations: nil params, an unrecognized namespace, a blank query, or a
// parameter value containing ':' or '*'.
func BuildKey(query string, params KeyParams) (string, error) {
	if params == nil {
		return "", errors.Wrap(ErrInvalidNamespace, "nil params")
	}
	ns := params.Namespace()
	if !ns.Valid() {
		return "", errors.Wrapf(ErrInvalidNamespace, "%q", ns)
	}
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}

	pairs := params.pairs()
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].name < pairs[j].name })

	var b strings.Builder
	b.WriteString(string(ns))
	b.WriteByte(':')
	b.WriteString(Fingerprint(query))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		if strings.ContainsAny(p.value, ":*") {
			return "", errors.Wrapf(ErrInvalidParamValue, "%s=%q", p.name, p.value)
		}
		b.WriteByte(':')
		b.WriteString(p.name)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	return b.String(), nil
}
