package usecase

import (
	"strings"
	"unicode"

	"github.com/palmlens/scorer/internal/domain"
)

// Delimiters recognised in ingredient declarations. All three bracket
// kinds nest interchangeably.
const (
	separatorChars    = ",;"
	openBracketChars  = "([{"
	closeBracketChars = ")]}"
)

// groupFrame is an open bracket whose children are still being collected
type groupFrame struct {
	head     string
	children []domain.Node
}

// ParseDeclaration splits an ingredient declaration into a tree of leaves and
// groups following its bracket nesting.
//
//	"sugar"                       -> [sugar]
//	"cocoa (sugar, cocoa butter)" -> [cocoa (sugar, cocoa butter)]
//	"a (b (c))"                   -> [a (b (c))]
//
// Unbalanced brackets return a *domain.MalformedDeclarationError. Empty
// segments are dropped and a bracket pair with nothing inside collapses to a
// leaf of its head.
func ParseDeclaration(declaration string) ([]domain.Node, error) {
	src := strings.TrimRightFunc(declaration, unicode.IsSpace)
	rest := strings.TrimLeftFunc(src, unicode.IsSpace)

	var result []domain.Node
	var stack []*groupFrame

	emit := func(n domain.Node) {
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			top.children = append(top.children, n)
			return
		}
		result = append(result, n)
	}

	emitLeaf := func(text string) {
		if text = strings.TrimSpace(text); text != "" {
			emit(domain.Leaf(text))
		}
	}

	closeGroup := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(top.children) == 0 {
			emitLeaf(top.head)
			return
		}
		emit(domain.Group(top.head, top.children...))
	}

	fail := func(reason string) ([]domain.Node, error) {
		return nil, &domain.MalformedDeclarationError{
			Declaration: declaration,
			Offset:      len(src) - len(rest),
			Reason:      reason,
		}
	}

	advance := func(n int) {
		rest = strings.TrimLeftFunc(rest[n:], unicode.IsSpace)
	}

	for rest != "" {
		sep := strings.IndexAny(rest, separatorChars)
		open := strings.IndexAny(rest, openBracketChars)
		closing := strings.IndexAny(rest, closeBracketChars)

		switch {
		case sep == 0:
			advance(1)

		case closing == 0:
			if len(stack) == 0 {
				return fail("closing bracket without matching open")
			}
			closeGroup()
			advance(1)

		case open < 0 && len(stack) == 0:
			if closing >= 0 {
				return fail("closing bracket without matching open")
			}
			for _, segment := range strings.FieldsFunc(rest, isSeparator) {
				emitLeaf(segment)
			}
			rest = ""

		case open >= 0 && (sep < 0 || open < sep) && (closing < 0 || open < closing):
			stack = append(stack, &groupFrame{head: strings.TrimSpace(rest[:open])})
			advance(open + 1)

		case closing >= 0 && (sep < 0 || closing < sep):
			if len(stack) == 0 {
				return fail("closing bracket without matching open")
			}
			emitLeaf(rest[:closing])
			closeGroup()
			advance(closing + 1)

		case sep >= 0:
			emitLeaf(rest[:sep])
			advance(sep + 1)

		default:
			// text remains inside a group that is never closed
			return fail("unclosed bracket")
		}
	}

	if len(stack) > 0 {
		return fail("unclosed bracket")
	}

	return result, nil
}

func isSeparator(r rune) bool {
	return strings.ContainsRune(separatorChars, r)
}

// FlattenDeclaration splits a declaration on separators only, ignoring
// nesting. The score estimator works on this flat token list.
func FlattenDeclaration(declaration string) []string {
	var tokens []string
	for _, segment := range strings.FieldsFunc(declaration, isSeparator) {
		if segment = strings.TrimSpace(segment); segment != "" {
			tokens = append(tokens, segment)
		}
	}
	return tokens
}
