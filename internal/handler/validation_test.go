package handler

import (
	"testing"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidator_Decimals(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name    string
		request domain.CreateLoanRequest
		wantErr bool
	}{
		{
			name: "valid request",
			request: domain.CreateLoanRequest{
				CustomerID: "CUST-1",
				Principal:  decimal.RequireFromString("100000"),
				AnnualRate: decimal.RequireFromString("12"),
				TermMonths: 12,
			},
		},
		{
			name: "zero rate allowed",
			request: domain.CreateLoanRequest{
				CustomerID: "CUST-1",
				Principal:  decimal.RequireFromString("1200"),
				TermMonths: 12,
			},
		},
		{
			name: "zero principal",
			request: domain.CreateLoanRequest{
				CustomerID: "CUST-1",
				AnnualRate: decimal.RequireFromString("12"),
				TermMonths: 12,
			},
			wantErr: true,
		},
		{
			name: "negative rate",
			request: domain.CreateLoanRequest{
				CustomerID: "CUST-1",
				Principal:  decimal.RequireFromString("1000"),
				AnnualRate: decimal.RequireFromString("-1"),
				TermMonths: 12,
			},
			wantErr: true,
		},
		{
			name: "bad email",
			request: domain.CreateLoanRequest{
				CustomerID:    "CUST-1",
				CustomerEmail: "not-an-email",
				Principal:     decimal.RequireFromString("1000"),
				TermMonths:    12,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.request)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
