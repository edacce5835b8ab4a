package expect

import "regexp"

var (
	outputPattern       = regexp.MustCompile(`// expect: ?(.*)`)
	compileErrorPattern = regexp.MustCompile(`// (Error.*)`)
	// taggedErrorPattern only locates the tag; ParseLineTag decides whether
	// it is a well-formed attribution.
	taggedErrorPattern  = regexp.MustCompile(`// (\[[^\]]*\]) (Error.*)`)
	runtimeErrorPattern = regexp.MustCompile(`// expect runtime error: (.+)`)
	nonTestPattern      = regexp.MustCompile(`// nontest`)
)

// ClassifyLine returns every marker found on one physical fixture line, in
// the fixed order output, compile error, tagged compile error, runtime
// error, non-test. Each kind is probed independently, so a line may yield
// more than one expectation. Tagged compile errors are returned regardless
// of their language gate; callers filter with AppliesTo.
func ClassifyLine(text string, line int) []Expectation {
	var found []Expectation

	if m := outputPattern.FindStringSubmatch(text); m != nil {
		found = append(found, OutputExpectation{Text: m[1], Line: line})
	}

	if m := compileErrorPattern.FindStringSubmatch(text); m != nil {
		found = append(found, CompileErrorExpectation{
			Key:  ErrorKey{Line: line, Message: m[1]},
			Line: line,
		})
	}

	for _, m := range taggedErrorPattern.FindAllStringSubmatch(text, -1) {
		tag, err := ParseLineTag(m[1])
		if err != nil {
			continue
		}
		found = append(found, CompileErrorExpectation{
			Key:  ErrorKey{Line: tag.Line, Message: m[2]},
			Lang: tag.Lang,
			Line: line,
		})
		break
	}

	if m := runtimeErrorPattern.FindStringSubmatch(text); m != nil {
		found = append(found, RuntimeErrorExpectation{Message: m[1], Line: line})
	}

	if nonTestPattern.MatchString(text) {
		found = append(found, NonTestMarker{Line: line})
	}

	return found
}
