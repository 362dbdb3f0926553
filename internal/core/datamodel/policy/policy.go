package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompanyPolicy holds per-company approval configuration: monetary
// thresholds in company currency and the completion rules. Read-only to
// the workflow engine.
type CompanyPolicy struct {
	ID               int64           `gorm:"primaryKey"`
	CompanyID        int64           `gorm:"column:company_id;uniqueIndex;not null"`
	CompanyCurrency  string          `gorm:"column:company_currency;type:varchar(3);not null"`
	ManagerApproval  decimal.Decimal `gorm:"column:manager_approval;type:numeric(18,2)"`
	FinanceApproval  decimal.Decimal `gorm:"column:finance_approval;type:numeric(18,2)"`
	DirectorApproval decimal.Decimal `gorm:"column:director_approval;type:numeric(18,2)"`

	PercentageRuleEnabled bool            `gorm:"column:percentage_rule_enabled;default:false"`
	PercentageThreshold   decimal.Decimal `gorm:"column:percentage_threshold;type:numeric(5,2)"`

	SpecificRuleEnabled bool   `gorm:"column:specific_rule_enabled;default:false"`
	SpecificRole        string `gorm:"column:specific_role"`

	HybridRuleEnabled bool            `gorm:"column:hybrid_rule_enabled;default:false"`
	HybridPercentage  decimal.Decimal `gorm:"column:hybrid_percentage;type:numeric(5,2)"`
	HybridRole        string          `gorm:"column:hybrid_role"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (CompanyPolicy) TableName() string {
	return "company_policies"
}
