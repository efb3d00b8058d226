// Package artifact reads and writes the files the CLI consumes and produces:
// corpus text, knowledge-base JSON, question/SQL records and DDL scripts.
// The path "-" means stdin or stdout.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
)

// Stdio is the path naming stdin or stdout.
const Stdio = "-"

// ReadFile returns the contents of path, or of stdin for "-".
func ReadFile(path string) ([]byte, error) {
	if path == Stdio {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// ReadCorpus loads a corpus blob and splits it on separator.
func ReadCorpus(path, separator string) ([]string, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return domain.SplitCorpus(string(data), separator), nil
}

// ReadKnowledge loads knowledge entries written by WriteKnowledge. Both the
// bare entry array and a full knowledge-base object are accepted.
func ReadKnowledge(path string) ([]domain.KnowledgeEntry, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeKnowledge(data)
}

// DecodeKnowledge parses either form accepted by ReadKnowledge.
func DecodeKnowledge(data []byte) ([]domain.KnowledgeEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var kb domain.KnowledgeBase
		if err := json.Unmarshal(trimmed, &kb); err != nil {
			return nil, fmt.Errorf("parsing knowledge base: %w", err)
		}
		return kb.Entries, nil
	}
	var entries []domain.KnowledgeEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("parsing knowledge entries: %w", err)
	}
	return entries, nil
}

// ReadQARecords loads a JSON array of question/SQL records.
func ReadQARecords(path string) ([]domain.QARecord, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.QARecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing records: %w", err)
	}
	return records, nil
}

// ReadCandidates loads a column-to-table JSON object as written by the
// candidates command.
func ReadCandidates(path string) (map[string]string, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	var candidates map[string]string
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("parsing candidates: %w", err)
	}
	return candidates, nil
}

// ReadValues loads one sample value per line, skipping empty lines.
func ReadValues(path string) ([]string, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values []string
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) > 0 {
			values = append(values, string(line))
		}
	}
	return values, nil
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return WriteFile(path, append(data, '\n'))
}

// WriteKnowledge writes the knowledge base as a bare entry array, or as the
// full object when it carries frequencies or skipped inputs.
func WriteKnowledge(path string, kb *domain.KnowledgeBase) error {
	if len(kb.Frequencies) > 0 || kb.Skipped > 0 {
		return WriteJSON(path, kb)
	}
	return WriteJSON(path, kb.Entries)
}

// WriteDDL writes CREATE TABLE statements as one script.
func WriteDDL(path string, stmts []string) error {
	return WriteFile(path, []byte(domain.FormatDDL(stmts)))
}

// WriteFile writes data to path, or to stdout for "-".
func WriteFile(path string, data []byte) error {
	if path == Stdio {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("writing stdout: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
