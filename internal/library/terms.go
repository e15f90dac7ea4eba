package library

import (
	"golang.org/x/text/cases"
)

// Field restricts a search term to one attribute of an archive.
type Field string

const (
	FieldAny      Field = ""
	FieldTitle    Field = "title"
	FieldArtist   Field = "artist"
	FieldCircle   Field = "circle"
	FieldMagazine Field = "magazine"
	FieldParody   Field = "parody"
	FieldTag      Field = "tag"
	FieldLanguage Field = "language"
	FieldSource   Field = "source"
)

// Term is one predicate of a library search. Values are case-folded.
type Term struct {
	Field     Field
	Namespace string // tag namespace, only with FieldTag
	Value     string
	Negate    bool
}

var fieldAliases = map[string]Field{
	"title":    FieldTitle,
	"artist":   FieldArtist,
	"circle":   FieldCircle,
	"group":    FieldCircle,
	"magazine": FieldMagazine,
	"parody":   FieldParody,
	"tag":      FieldTag,
	"language": FieldLanguage,
	"source":   FieldSource,
}

var tagNamespaces = map[string]bool{
	"male":   true,
	"female": true,
	"misc":   true,
}

// ParseTerms splits the free-text part of a search into terms. Bare words and
// "quoted phrases" match anywhere; field:value restricts the match; a leading
// "-" or NOT negates the following term.
func ParseTerms(q string) []Term {
	fold := cases.Fold()
	l := newLexer(q)

	var terms []Term
	negate := false
	for {
		tok := l.next()
		switch tok.Type {
		case tokenEOF:
			return terms
		case tokenNot:
			negate = true
			continue
		case tokenWord, tokenPhrase:
			if tok.Value != "" {
				terms = append(terms, Term{Value: fold.String(tok.Value), Negate: negate})
			}
		case tokenField:
			if !l.adjacent() {
				terms = append(terms, Term{Value: fold.String(tok.Value + ":"), Negate: negate})
				break
			}
			value := l.next()
			switch value.Type {
			case tokenWord, tokenPhrase:
				if value.Value != "" {
					terms = append(terms, fieldTerm(fold.String(tok.Value), fold.String(value.Value), negate))
				}
			case tokenNot:
				// "a:-b" searches for "a:" and excludes "b"
				terms = append(terms, Term{Value: fold.String(tok.Value + ":"), Negate: negate})
				negate = true
				continue
			case tokenField:
				terms = append(terms, Term{Value: fold.String(tok.Value + ":" + value.Value + ":"), Negate: negate})
			}
		}
		negate = false
	}
}

func fieldTerm(name, value string, negate bool) Term {
	if field, ok := fieldAliases[name]; ok {
		return Term{Field: field, Value: value, Negate: negate}
	}
	if tagNamespaces[name] {
		return Term{Field: FieldTag, Namespace: name, Value: value, Negate: negate}
	}
	return Term{Value: name + ":" + value, Negate: negate}
}
