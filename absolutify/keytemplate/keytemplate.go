// Package keytemplate evaluates object key prefix templates against the
// markdown document they belong to.
package keytemplate

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

type Model struct {
	envRepo env.Repository
	logger  log.Logger
}

func NewModel(envRepo env.Repository, logger log.Logger) Model {
	return Model{
		envRepo: envRepo,
		logger:  logger,
	}
}

// Evaluate expands a prefix template such as "docs/{filename}" for one
// document. Available template functions:
//
//	{filename}    document filename without its extension
//	{parent_0}    name of the document's immediate parent directory
//	{random_hex}  random 8-byte hex token, fresh per occurrence
//	{getenv "X"}  value of the environment variable X
//
// Leading and trailing slashes are stripped from the result so it can be
// joined directly with an object key.
func (m Model) Evaluate(pattern string, docPath string) (string, error) {
	funcMap := template.FuncMap{
		"filename":   func() string { return stem(docPath) },
		"parent_0":   func() string { return filepath.Base(filepath.Dir(docPath)) },
		"random_hex": randomHex,
		"getenv":     m.getEnvVar,
	}

	tmpl, err := template.New("").Delims("{", "}").Funcs(funcMap).Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid key prefix template: %w", err)
	}

	resultBuffer := bytes.Buffer{}
	if err := tmpl.Execute(&resultBuffer, nil); err != nil {
		return "", err
	}
	return strings.Trim(resultBuffer.String(), "/"), nil
}

func (m Model) getEnvVar(key string) string {
	value := m.envRepo.Get(key)
	if value == "" {
		m.logger.Warnf("Environment variable %s is not defined", key)
	}
	return value
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func randomHex() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
