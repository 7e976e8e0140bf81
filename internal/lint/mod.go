// Package main provides the custom checks of the project for "go vet".
//
// It can be used like the following:
//
//	go build -o lint ./internal/lint && go vet -vettool=./lint ./...
package main

import (
	"go/ast"
	"go/constant"
	"go/types"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/analysis/unitchecker"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

// maxLen is the maximum length of a comment line.
var maxLen = 100

var commentAnalyzer = &analysis.Analyzer{
	Name: "commentlen",
	Doc:  "checks the lengths of comments",
	Run:  runComments,
}

var errorAnalyzer = &analysis.Analyzer{
	Name:     "errmsg",
	Doc:      "checks that error messages are neither capitalized nor punctuated",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      runErrors,
}

// errorFuncs are the constructors whose first argument is an error message.
var errorFuncs = map[string]bool{
	"errors.New":                  true,
	"fmt.Errorf":                  true,
	"golang.org/x/xerrors.New":    true,
	"golang.org/x/xerrors.Errorf": true,
}

func init() {
	commentAnalyzer.Flags.IntVar(&maxLen, "maxlen", maxLen, "maximum length of a comment line")
}

func main() {
	unitchecker.Main(commentAnalyzer, errorAnalyzer)
}

// runComments reports the comment lines longer than the limit. Generated
// files and compiler directives are ignored.
func runComments(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		if ast.IsGenerated(file) {
			continue
		}

		for _, cg := range file.Comments {
			for _, c := range cg.List {
				// A /* */ comment can span multiple lines.
				for _, line := range strings.Split(c.Text, "\n") {
					if strings.HasPrefix(line, "//go:") {
						continue
					}

					if utf8.RuneCountInString(line) > maxLen {
						pass.Reportf(c.Pos(), "comment too long (%d > %d)",
							utf8.RuneCountInString(line), maxLen)
					}
				}
			}
		}
	}

	return nil, nil
}

func runErrors(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)

		fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
		if !ok || !errorFuncs[fn.FullName()] || len(call.Args) == 0 {
			return
		}

		tv, ok := pass.TypesInfo.Types[call.Args[0]]
		if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
			return
		}

		msg := constant.StringVal(tv.Value)
		if msg == "" {
			return
		}

		if isCapitalized(msg) {
			pass.Reportf(call.Args[0].Pos(), "error message should not be capitalized")
		}

		last, _ := utf8.DecodeLastRuneInString(msg)
		if strings.ContainsRune(".!:\n", last) {
			pass.Reportf(call.Args[0].Pos(), "error message should not end with punctuation")
		}
	})

	return nil, nil
}

// isCapitalized returns true when the message starts with an upper case
// letter followed by a lower case one, so that acronyms are accepted.
func isCapitalized(msg string) bool {
	first, size := utf8.DecodeRuneInString(msg)
	if !unicode.IsUpper(first) {
		return false
	}

	second, _ := utf8.DecodeRuneInString(msg[size:])

	return unicode.IsLower(second)
}
