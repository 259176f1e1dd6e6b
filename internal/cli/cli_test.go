package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

const sampleTemplate = `
slug: curso-rapido
title: Curso Rápido
questions:
  - id: opening
    title: Bem-vindo
  - id: level
    question: Qual seu nível?
    options: [Iniciante, Avançado]
  - id: solution
    benefits: [Aulas ao vivo]
    cta: Quero começar
questionOrder: [opening, level, solution]
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTemplatesValidate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "curso.yaml"), []byte(sampleTemplate), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	out, err := run(t, "templates", "validate", dir)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "curso-rapido (3 steps)") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTemplatesValidateRejectsBrokenOrder(t *testing.T) {
	dir := t.TempDir()
	broken := strings.Replace(sampleTemplate, "[opening, level, solution]", "[opening, missing]", 1)
	if err := os.WriteFile(filepath.Join(dir, "broken.yml"), []byte(broken), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	if _, err := run(t, "templates", "validate", dir); err == nil {
		t.Fatalf("expected validation failure")
	}
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "hash-password", "s3cret")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")); err != nil {
		t.Fatalf("hash does not match: %v", err)
	}
}
