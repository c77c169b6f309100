package compensation

import (
	"errors"
	"testing"

	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func component(kind ComponentKind, amount string) SalaryComponent {
	return SalaryComponent{Kind: kind, Amount: decimal.RequireFromString(amount)}
}

func TestTotal(t *testing.T) {
	cases := []struct {
		name       string
		components []SalaryComponent
		want       string
	}{
		{"empty", nil, "0"},
		{"base only", []SalaryComponent{component(KindBase, "3000.00")}, "3000"},
		{
			"all kinds",
			[]SalaryComponent{
				component(KindBase, "3000.00"),
				component(KindRecurring, "200.00"),
				component(KindOneOff, "150.00"),
				component(KindOffset, "50.00"),
			},
			"3300",
		},
		{"offset larger than pay", []SalaryComponent{component(KindBase, "10"), component(KindOffset, "25.50")}, "-15.5"},
		{"unknown kind ignored", []SalaryComponent{component(KindBase, "1"), component("bonus", "99")}, "1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(c.want).Equal(Total(c.components)), "got %s", Total(c.components))
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	src := []SalaryComponent{
		{ID: "c1", CompensationID: "comp-a", Kind: KindBase, Amount: decimal.NewFromInt(1000), Label: "Base"},
	}
	cp := Clone(src)
	require.Len(t, cp, 1)
	assert.Empty(t, cp[0].ID)
	assert.Empty(t, cp[0].CompensationID)

	cp[0].Amount = decimal.NewFromInt(5)
	assert.True(t, src[0].Amount.Equal(decimal.NewFromInt(1000)))
}

func TestCreateCompensationRequestValidate(t *testing.T) {
	req := CreateCompensationRequest{
		EmployeeID: "123e4567-e89b-12d3-a456-426614174000",
		Components: []ComponentInput{
			{Kind: "base", Amount: decimal.NewFromInt(3000)},
			{Kind: "bonus", Amount: decimal.NewFromInt(1)},
			{Kind: "offset", Amount: decimal.NewFromInt(-5)},
		},
	}
	err := req.Validate()
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	m := verrs.ToMap()
	assert.Contains(t, m, "components[1].kind")
	assert.Contains(t, m, "components[2].amount")
	assert.NotContains(t, m, "components[0].kind")
}
