package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserHashesPassword(t *testing.T) {
	u, err := CreateUser("Ada Lovelace", " Ada@Example.com ", "s3cret-pass")
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, ROLE_USER, u.Role)
	assert.NotEqual(t, "s3cret-pass", u.Password)
	assert.True(t, u.CheckPassword("s3cret-pass"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserWithoutPasswordNeverMatches(t *testing.T) {
	u, err := CreateUser("Oauth User", "oauth@example.com", "")
	require.NoError(t, err)
	assert.False(t, u.CheckPassword(""))
}

func TestCreateUserRejectsInvalidEmail(t *testing.T) {
	_, err := CreateUser("Bob", "not-an-email", "password1")
	assert.Error(t, err)
}

func TestParseCourseCategory(t *testing.T) {
	c, ok := ParseCourseCategory(" personal_development ")
	require.True(t, ok)
	assert.Equal(t, CategoryPersonalDevelopment, c)

	_, ok = ParseCourseCategory("cooking")
	assert.False(t, ok)
}

func TestMaterialValidateNeedsSource(t *testing.T) {
	m := &Material{UnitID: 1, Type: MaterialTypePDF}
	assert.ErrorIs(t, m.Validate(), ErrMaterialWithoutSource)

	m.StorageKey = "courses/1/intro.pdf"
	assert.NoError(t, m.Validate())
}

func TestEnrollmentGrantsAccess(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Enrollment{Status: EnrollmentStatusActive}).GrantsAccess(now))
	assert.True(t, (&Enrollment{Status: EnrollmentStatusActive, ExpiresAt: &future}).GrantsAccess(now))
	assert.False(t, (&Enrollment{Status: EnrollmentStatusActive, ExpiresAt: &past}).GrantsAccess(now))
	assert.False(t, (&Enrollment{Status: EnrollmentStatusPending}).GrantsAccess(now))
}

func TestProgressNormalize(t *testing.T) {
	now := time.Now()

	p := &Progress{ProgressPercentage: 140}
	p.Normalize(now)
	assert.Equal(t, 100, p.ProgressPercentage)
	assert.True(t, p.Completed)
	require.NotNil(t, p.CompletedAt)

	p = &Progress{ProgressPercentage: 40, Completed: false, CompletedAt: &now}
	p.Normalize(now)
	assert.Nil(t, p.CompletedAt)
	assert.Equal(t, 40, p.ProgressPercentage)
}

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from PaymentStatus
		to   PaymentStatus
		want bool
	}{
		{PaymentStatusCreated, PaymentStatusApproved, true},
		{PaymentStatusCreated, PaymentStatusRejected, true},
		{PaymentStatusRejected, PaymentStatusApproved, true},
		{PaymentStatusApproved, PaymentStatusApproved, true},
		{PaymentStatusApproved, PaymentStatusRefunded, true},
		{PaymentStatusApproved, PaymentStatusRejected, false},
		{PaymentStatusApproved, PaymentStatusCreated, false},
		{PaymentStatusRefunded, PaymentStatusApproved, false},
		{PaymentStatusRefunded, PaymentStatusRejected, false},
		{PaymentStatusRefunded, PaymentStatusRefunded, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.Empty(t, PaymentStatusSources("UNKNOWN"))
}
