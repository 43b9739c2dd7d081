package feed

import (
	"fmt"
	"strings"
)

type Source string

const (
	SourceV2EX     Source = "v2ex"
	SourceNodeSeek Source = "nodeseek"
	SourceLinuxDo  Source = "linux.do"
)

var Sources = []Source{SourceV2EX, SourceNodeSeek, SourceLinuxDo}

// ParseSource matches s case-insensitively against the supported sources.
func ParseSource(s string) (Source, error) {
	lowered := Source(strings.ToLower(strings.TrimSpace(s)))
	for _, source := range Sources {
		if lowered == source {
			return source, nil
		}
	}
	return "", &UnsupportedSourceError{Source: s}
}

func (s Source) String() string {
	return string(s)
}

type UnsupportedSourceError struct {
	Source string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported source: %s", e.Source)
}
