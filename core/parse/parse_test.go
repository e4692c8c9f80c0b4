package parse

import (
	"strings"
	"testing"
)

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestParseStringAs_Primitives(t *testing.T) {
	gotString, err := ParseStringAs[string]("hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotString != "hello" {
		t.Errorf("expected 'hello', got %q", gotString)
	}

	gotBool, err := ParseStringAs[bool]("true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotBool {
		t.Errorf("expected true")
	}

	gotInt, err := ParseStringAs[int](" 42 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotInt != 42 {
		t.Errorf("expected 42, got %d", gotInt)
	}

	gotFloat, err := ParseStringAs[float64]("3.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFloat != 3.5 {
		t.Errorf("expected 3.5, got %f", gotFloat)
	}
}

func TestParseStringAs_PrimitiveErrors(t *testing.T) {
	if _, err := ParseStringAs[int]("not a number"); err == nil {
		t.Error("expected error parsing non-numeric int")
	}
	if _, err := ParseStringAs[bool]("maybe"); err == nil {
		t.Error("expected error parsing non-boolean")
	}
}

func TestParseStringAs_Struct(t *testing.T) {
	got, err := ParseStringAs[person](`{"name":"Ravi","age":30}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Ravi" || got.Age != 30 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseStringAs_RepairsMalformedJSON(t *testing.T) {
	// Single quotes and unquoted keys are common model output mistakes.
	got, err := ParseStringAs[person](`{name: 'Ravi', age: 30}`)
	if err != nil {
		t.Fatalf("expected repair to succeed, got error: %v", err)
	}
	if got.Name != "Ravi" || got.Age != 30 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseStringAs_StringSlice(t *testing.T) {
	got, err := ParseStringAs[[]string](`["weather", "plan"]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "weather" || got[1] != "plan" {
		t.Errorf("unexpected result: %v", got)
	}
}

func TestParseStringAs_CodeFencedJSON(t *testing.T) {
	content := "```json\n{\"name\":\"Ravi\",\"age\":30}\n```"
	got, err := ParseStringAs[person](content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Ravi" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestStripCodeFences(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no fence", input: "  plain text  ", want: "plain text"},
		{name: "bare fence", input: "```\nhello\n```", want: "hello"},
		{name: "json fence", input: "```json\n[1,2]\n```", want: "[1,2]"},
		{name: "fence without language on same line as content", input: "```{\"a\":1}```", want: `{"a":1}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := StripCodeFences(testCase.input)
			if got != testCase.want {
				t.Errorf("expected %q, got %q", testCase.want, got)
			}
		})
	}
}

func TestParseStringAs_UnrepairableContent(t *testing.T) {
	_, err := ParseStringAs[person]("this is not json at all {{{")
	if err == nil {
		t.Fatal("expected error for unrepairable content")
	}
	if !strings.Contains(err.Error(), "failed to unmarshal") {
		t.Errorf("unexpected error text: %v", err)
	}
}
