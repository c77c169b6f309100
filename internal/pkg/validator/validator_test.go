package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"123e4567-e89b-12d3-a456-426614174000",
	}
	invalid := []string{
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"",
	}
	for _, id := range valid {
		if !IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = true, want false", id)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2024-01-01", "1999-12-31"}
	invalid := []string{"2024-13-01", "2024-02-30", "01-01-2024", "", "2024/01/01"}
	for _, d := range valid {
		if _, ok := IsValidDate(d); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", d)
		}
	}
	for _, d := range invalid {
		if _, ok := IsValidDate(d); ok {
			t.Errorf("IsValidDate(%q) = true, want false", d)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"PENDING", "APPROVED"}
	if !IsInSlice("PENDING", slice) {
		t.Errorf("IsInSlice(PENDING) = false, want true")
	}
	if IsInSlice("pending", slice) {
		t.Errorf("IsInSlice(pending) = true, want false")
	}
}

func TestIsValidDateTime(t *testing.T) {
	valid := []string{"2024-01-15T10:30:00Z", "2024-01-15T10:30:00+07:00", "2024-01-15T10:30:00.123Z"}
	invalid := []string{"2024-01-15 10:30:00", "2024-01-15", ""}
	for _, s := range valid {
		if _, ok := IsValidDateTime(s); !ok {
			t.Errorf("IsValidDateTime(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidDateTime(s); ok {
			t.Errorf("IsValidDateTime(%q) = true, want false", s)
		}
	}
}

func TestParseOptionalDate(t *testing.T) {
	var errs ValidationErrors

	assert.Nil(t, ParseOptionalDate("date", nil, &errs))
	blank := " "
	assert.Nil(t, ParseOptionalDate("date", &blank, &errs))

	good := "2025-02-01"
	d := ParseOptionalDate("start_date", &good, &errs)
	require.NotNil(t, d)
	assert.Equal(t, 2025, d.Year())

	bad := "02/01/2025"
	assert.Nil(t, ParseOptionalDate("end_date", &bad, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "end_date", errs[0].Field)
}

type sampleComponent struct {
	Kind   string `json:"kind" validate:"required,oneof=base recurring one_off offset"`
	Amount string `json:"amount" validate:"required"`
}

type sampleRequest struct {
	EmployeeID string            `json:"employee_id" validate:"required,uuid"`
	Components []sampleComponent `json:"components" validate:"dive"`
}

func TestStruct(t *testing.T) {
	ok := sampleRequest{
		EmployeeID: "123e4567-e89b-12d3-a456-426614174000",
		Components: []sampleComponent{{Kind: "base", Amount: "3000.00"}},
	}
	assert.NoError(t, Struct(ok))

	bad := sampleRequest{
		EmployeeID: "",
		Components: []sampleComponent{{Kind: "bonus", Amount: "1"}},
	}
	err := Struct(bad)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	m := verrs.ToMap()
	assert.Equal(t, "employee_id is required", m["employee_id"])
	assert.Contains(t, m["components[0].kind"], "must be one of")
}

func TestValidationErrorsErr(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.Err())

	errs.Add("paid_time", "paid_time is required")
	err := errs.Err()
	require.Error(t, err)
	assert.Equal(t, "paid_time: paid_time is required", err.Error())
}
