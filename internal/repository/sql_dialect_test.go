package repository

import (
	"strings"
	"testing"
)

func TestLikeOperatorByDialect(t *testing.T) {
	if got := likeOperatorByDialect("postgres"); got != "ILIKE" {
		t.Fatalf("postgres like operator want ILIKE got %s", got)
	}
	if got := likeOperatorByDialect("sqlite"); got != "LIKE" {
		t.Fatalf("sqlite like operator want LIKE got %s", got)
	}
	if got := likeOperatorByDialect(""); got != "LIKE" {
		t.Fatalf("empty dialect like operator want LIKE got %s", got)
	}
}

func TestBuildLikeCondition(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("sqlite", []string{"slug", "name", "", "description"})
	if argCount != 3 {
		t.Fatalf("arg count want 3 got %d", argCount)
	}
	if !strings.Contains(condition, "slug LIKE ?") {
		t.Fatalf("condition should contain slug LIKE, got %s", condition)
	}
	if !strings.Contains(condition, "name LIKE ? OR description LIKE ?") {
		t.Fatalf("condition should join columns with OR, got %s", condition)
	}
}

func TestBuildLikeConditionPostgres(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("postgres", []string{"name"})
	if argCount != 1 {
		t.Fatalf("arg count want 1 got %d", argCount)
	}
	if condition != "name ILIKE ?" {
		t.Fatalf("condition want name ILIKE ? got %s", condition)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%test%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for idx, arg := range args {
		if arg != "%test%" {
			t.Fatalf("args[%d] want %%test%% got %v", idx, arg)
		}
	}
}
