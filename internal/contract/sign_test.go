package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/go-contract-session/internal/session"
)

// fillRentSession fills every required field for both roles so the session
// reaches ready_to_build.
func fillRentSession(t *testing.T, svc *Service, sess *session.Session) {
	t.Helper()

	svc.SetPersonType(sess, "lessor", "company")
	for field, value := range map[string]string{
		"name":   "ТОВ Ромашка",
		"edrpou": "12345678",
	} {
		res := svc.UpdateField(sess, UpdateRequest{Field: field, Value: value, Role: "lessor", ActingIdentity: "alice"})
		require.True(t, res.OK, "lessor field %s: %s", field, res.Error)
	}

	svc.SetPersonType(sess, "lessee", "individual")
	for field, value := range map[string]string{
		"name":   "Тарас Шевченко",
		"rnokpp": "1234567890",
	} {
		res := svc.UpdateField(sess, UpdateRequest{Field: field, Value: value, Role: "lessee", ActingIdentity: "bob"})
		require.True(t, res.OK, "lessee field %s: %s", field, res.Error)
	}

	for field, value := range map[string]string{
		"rent_amount": "15000",
		"start_date":  "01.06.2025",
	} {
		res := svc.UpdateField(sess, UpdateRequest{Field: field, Value: value, ActingIdentity: "alice", Role: "lessor"})
		require.True(t, res.OK, "contract field %s: %s", field, res.Error)
	}

	require.True(t, sess.CanBuildContract)
	require.Equal(t, session.StateReadyToBuild, sess.State)
}

func TestSignBeforeBuild(t *testing.T) {
	svc := newTestService()
	sess := newRentSession(t, svc)

	_, err := svc.Sign(sess, "alice")
	assert.ErrorIs(t, err, ErrNotReadyToSign)

	fillRentSession(t, svc, sess)
	_, err = svc.Sign(sess, "alice")
	assert.ErrorIs(t, err, ErrRebuildRequired, "ready but not rendered yet")
}

func TestMarkBuilt(t *testing.T) {
	svc := newTestService()
	sess := newRentSession(t, svc)

	assert.ErrorIs(t, svc.MarkBuilt(sess), ErrNotReadyToBuild, "not ready yet")

	fillRentSession(t, svc, sess)
	require.NoError(t, svc.MarkBuilt(sess))
	assert.Equal(t, session.StateBuilt, sess.State)

	require.NotEmpty(t, sess.History)
	assert.Equal(t, "build", sess.History[len(sess.History)-1].Type)
}

func TestTwoPartySigningFlow(t *testing.T) {
	svc := newTestService()
	sess := newRentSession(t, svc)
	fillRentSession(t, svc, sess)
	require.NoError(t, svc.MarkBuilt(sess))

	// First party signs; the document stays open for the second.
	outcome, err := svc.Sign(sess, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"lessor"}, outcome.SignedRoles)
	assert.False(t, outcome.IsFullySigned)
	assert.NotEqual(t, session.StateCompleted, outcome.State)

	// Second party signs; the session completes.
	outcome, err = svc.Sign(sess, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"lessee"}, outcome.SignedRoles)
	assert.True(t, outcome.IsFullySigned)
	assert.Equal(t, session.StateCompleted, outcome.State)
	assert.True(t, sess.IsFullySigned())

	// A completed document is immutable.
	res := svc.UpdateField(sess, UpdateRequest{Field: "rent_amount", Value: "1", Role: "lessee", ActingIdentity: "bob"})
	assert.False(t, res.OK)
	assert.Equal(t, session.StateCompleted, sess.State)
}

func TestSignWithoutRole(t *testing.T) {
	svc := newTestService()
	sess := newRentSession(t, svc)
	fillRentSession(t, svc, sess)
	require.NoError(t, svc.MarkBuilt(sess))

	_, err := svc.Sign(sess, "stranger")
	assert.ErrorIs(t, err, ErrNoRoleContext)
}

func TestSignIsIdempotentPerRole(t *testing.T) {
	svc := newTestService()
	sess := newRentSession(t, svc)
	fillRentSession(t, svc, sess)
	require.NoError(t, svc.MarkBuilt(sess))

	outcome, err := svc.Sign(sess, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"lessor"}, outcome.SignedRoles)

	outcome, err = svc.Sign(sess, "alice")
	require.NoError(t, err)
	assert.Empty(t, outcome.SignedRoles, "signing twice records nothing new")
}

func TestEditAfterSignRequiresRebuild(t *testing.T) {
	svc := newTestService()
	sess := newRentSession(t, svc)
	fillRentSession(t, svc, sess)
	require.NoError(t, svc.MarkBuilt(sess))

	_, err := svc.Sign(sess, "alice")
	require.NoError(t, err)

	// The unsigned party edits; the first signature is void and the document
	// must be rendered again before anyone signs.
	res := svc.UpdateField(sess, UpdateRequest{Field: "rent_amount", Value: "20000", Role: "lessee", ActingIdentity: "bob"})
	require.True(t, res.OK)
	assert.False(t, sess.Signatures["lessor"])
	assert.Equal(t, session.StateReadyToBuild, sess.State)

	_, err = svc.Sign(sess, "bob")
	assert.ErrorIs(t, err, ErrRebuildRequired)

	require.NoError(t, svc.MarkBuilt(sess))
	_, err = svc.Sign(sess, "alice")
	require.NoError(t, err)
	outcome, err := svc.Sign(sess, "bob")
	require.NoError(t, err)
	assert.True(t, outcome.IsFullySigned)
}

func TestFullModeCreatorSignsAllRoles(t *testing.T) {
	svc := newTestService()
	sess := session.New("s-1", "creator")

	require.NoError(t, svc.SetCategory(sess, "rent"))
	require.NoError(t, svc.SetTemplate(sess, "rent_basic"))
	sess.FillingMode = session.FillingModeFull

	svc.SetPersonType(sess, "lessor", "company")
	for field, value := range map[string]string{"name": "ТОВ Ромашка", "edrpou": "12345678"} {
		res := svc.UpdateField(sess, UpdateRequest{Field: field, Value: value, Role: "lessor", ActingIdentity: "creator"})
		require.True(t, res.OK, res.Error)
	}
	svc.SetPersonType(sess, "lessee", "individual")
	for field, value := range map[string]string{"name": "Тарас Шевченко", "rnokpp": "1234567890"} {
		res := svc.UpdateField(sess, UpdateRequest{Field: field, Value: value, Role: "lessee", ActingIdentity: "creator"})
		require.True(t, res.OK, res.Error)
	}
	for field, value := range map[string]string{"rent_amount": "15000", "start_date": "01.06.2025"} {
		res := svc.UpdateField(sess, UpdateRequest{Field: field, Value: value, Role: "lessee", ActingIdentity: "creator"})
		require.True(t, res.OK, res.Error)
	}

	require.True(t, sess.CanBuildContract)
	require.NoError(t, svc.MarkBuilt(sess))

	outcome, err := svc.Sign(sess, "creator")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lessor", "lessee"}, outcome.SignedRoles)
	assert.True(t, outcome.IsFullySigned)
	assert.Equal(t, session.StateCompleted, sess.State)
}
