package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType is a closed enum of ledger-relevant transaction kinds.
type TransactionType string

const (
	TxQuizCompletion      TransactionType = "quiz_completion"
	TxDocumentUpload      TransactionType = "document_upload"
	TxDailyLogin          TransactionType = "daily_login"
	TxReferralBonus       TransactionType = "referral_bonus"
	TxAchievementBonus    TransactionType = "achievement_bonus"
	TxAdminAdjustment     TransactionType = "admin_adjustment"
	TxCourseDiscount      TransactionType = "course_discount"
	TxPremiumFeature      TransactionType = "premium_feature"
	TxBonusContent        TransactionType = "bonus_content"
	TxCoursePurchase      TransactionType = "course_purchase"
	TxCourseRefund        TransactionType = "course_refund"
	TxSubscriptionPayment TransactionType = "subscription_payment"
	TxSubscriptionRefund  TransactionType = "subscription_refund"
	TxWithdrawal          TransactionType = "withdrawal"
	TxCredit              TransactionType = "credit"
	TxDebit               TransactionType = "debit"
)

// TransactionStatus is a closed enum of transaction lifecycle states.
// Transitions are forward-only; the only paths out of completed are the
// explicit refund and cancel edges.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
	StatusRefunded   TransactionStatus = "refunded"
	StatusExpired    TransactionStatus = "expired"
)

// statusEdges enumerates the allowed forward transitions.
var statusEdges = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusExpired},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {StatusRefunded},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, t := range statusEdges[s] {
		if t == next {
			return true
		}
	}
	return false
}

// PaymentMethod identifies how a transaction was paid.
type PaymentMethod string

const (
	PayPoints PaymentMethod = "points"
	PayCard   PaymentMethod = "card"
	PayWallet PaymentMethod = "wallet"
)

// TransactionCategory classifies a transaction for reporting and consistency
// checks. The category sets are fixed, disjoint, and exhaustive over the type
// enum.
type TransactionCategory string

const (
	CategoryPointsEarning  TransactionCategory = "points_earning"
	CategoryPointsSpending TransactionCategory = "points_spending"
	CategoryMonetary       TransactionCategory = "monetary"
	CategoryOther          TransactionCategory = "other"
)

var categoryByType = map[TransactionType]TransactionCategory{
	TxQuizCompletion:   CategoryPointsEarning,
	TxDocumentUpload:   CategoryPointsEarning,
	TxDailyLogin:       CategoryPointsEarning,
	TxReferralBonus:    CategoryPointsEarning,
	TxAchievementBonus: CategoryPointsEarning,
	TxAdminAdjustment:  CategoryPointsEarning,

	TxCourseDiscount: CategoryPointsSpending,
	TxPremiumFeature: CategoryPointsSpending,
	TxBonusContent:   CategoryPointsSpending,

	TxCoursePurchase:      CategoryMonetary,
	TxCourseRefund:        CategoryMonetary,
	TxSubscriptionPayment: CategoryMonetary,
	TxSubscriptionRefund:  CategoryMonetary,
	TxWithdrawal:          CategoryMonetary,

	TxCredit: CategoryOther,
	TxDebit:  CategoryOther,
}

// Classify maps a transaction type to its category. Unknown types are other.
func Classify(t TransactionType) TransactionCategory {
	if c, ok := categoryByType[t]; ok {
		return c
	}
	return CategoryOther
}

// Transaction records one earning, spending, or monetary event tied to a
// learner. Immutable once completed. Optional correlated fields are pointers;
// nil means the field was not provided and its checks defer to upstream
// required-field validation.
type Transaction struct {
	ID             string            `json:"id"`
	Learner        LearnerID         `json:"learner"`
	Type           TransactionType   `json:"type"`
	Status         TransactionStatus `json:"status"`
	Amount         float64           `json:"amount"`
	PaymentMethod  PaymentMethod     `json:"payment_method,omitempty"`
	PointsEarned   *int64            `json:"points_earned,omitempty"`
	PointsUsed     *int64            `json:"points_used,omitempty"`
	DiscountAmount *float64          `json:"discount_amount,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewTransaction creates a pending transaction with a fresh ID.
func NewTransaction(learner LearnerID, typ TransactionType, at time.Time) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		Learner:   learner,
		Type:      typ,
		Status:    StatusPending,
		CreatedAt: at,
	}
}

// Category returns the transaction's reporting category.
func (t Transaction) Category() TransactionCategory {
	return Classify(t.Type)
}

// ValidateConsistency enforces correlated-field rules before a transaction is
// committed. Checks whose fields are absent pass; requiredness is upstream's
// concern. Any failure rejects the transaction, never a silent coercion.
func (t Transaction) ValidateConsistency() error {
	if t.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInconsistentTransaction)
	}
	if t.Type == TxCourseDiscount && t.PaymentMethod != "" && t.PaymentMethod != PayPoints {
		return fmt.Errorf("%w: course_discount must be paid with points", ErrInconsistentTransaction)
	}
	if (t.Type == TxCoursePurchase || t.Type == TxSubscriptionPayment) && t.Amount <= 0 {
		return fmt.Errorf("%w: %s requires a positive amount", ErrInconsistentTransaction, t.Type)
	}
	if t.Type == TxQuizCompletion && t.PointsEarned != nil && *t.PointsEarned <= 0 {
		return fmt.Errorf("%w: quiz_completion points_earned must be positive", ErrInconsistentTransaction)
	}
	if t.Type == TxCourseDiscount && t.PointsUsed != nil && *t.PointsUsed <= 0 {
		return fmt.Errorf("%w: course_discount points_used must be positive", ErrInconsistentTransaction)
	}
	if t.DiscountAmount != nil {
		if *t.DiscountAmount < 0 {
			return fmt.Errorf("%w: discount_amount must not be negative", ErrInconsistentTransaction)
		}
		if *t.DiscountAmount > t.Amount {
			return fmt.Errorf("%w: discount_amount exceeds amount", ErrInconsistentTransaction)
		}
	}
	return nil
}

// Int64Ptr is a small helper for filling optional transaction fields.
func Int64Ptr(v int64) *int64 { return &v }

// Float64Ptr is a small helper for filling optional transaction fields.
func Float64Ptr(v float64) *float64 { return &v }
