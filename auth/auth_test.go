package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/idreg/auth"
	"xdao.co/idreg/keys"
	"xdao.co/idreg/model"
)

type fakeLedger struct {
	nonces  map[string]uint64
	sig     model.Signature
	readErr error
	bumps   int
}

func newFakeLedger(sig model.Signature) *fakeLedger {
	return &fakeLedger{nonces: map[string]uint64{}, sig: sig}
}

func (f *fakeLedger) CurrentNonce(signer model.Identifier) (uint64, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.nonces[signer.String()], nil
}

func (f *fakeLedger) ConsumeNonce(signer model.Identifier) (uint64, error) {
	n := f.nonces[signer.String()]
	f.nonces[signer.String()] = n + 1
	f.bumps++
	return n, nil
}

func (f *fakeLedger) Signature() model.Signature { return f.sig }

var testDomain = auth.Domain{Network: "Test SDF Network ; September 2015", Contract: [32]byte{1, 2, 3}}

func signer(t *testing.T, scheme model.Scheme, b byte) keys.Signer {
	t.Helper()
	seed := make([]byte, keys.SeedSize)
	for i := range seed {
		seed[i] = b ^ byte(i*7+1)
	}
	s, err := keys.NewSigner(scheme, seed)
	require.NoError(t, err)
	return s
}

func TestCheck_AcceptsEachScheme(t *testing.T) {
	var key model.IdenKey
	for _, scheme := range model.Schemes {
		t.Run(string(scheme), func(t *testing.T) {
			s := signer(t, scheme, 0x10)
			sig, err := keys.SignCall(s, testDomain, "write_iden", s.Identifier(), uint64(0), key)
			require.NoError(t, err)

			na := newFakeLedger(sig)
			require.NoError(t, auth.Check(testDomain, na, 0, "write_iden", s.Identifier(), uint64(0), key))
			assert.Equal(t, uint64(1), na.nonces[s.Identifier().String()])
			assert.Equal(t, 1, na.bumps)
		})
	}
}

func TestCheck_RejectsReplay(t *testing.T) {
	s := signer(t, model.SchemeEd25519, 1)
	sig, err := keys.SignCall(s, testDomain, "set_admin", s.Identifier(), uint64(0))
	require.NoError(t, err)

	na := newFakeLedger(sig)
	require.NoError(t, auth.Check(testDomain, na, 0, "set_admin", s.Identifier(), uint64(0)))

	err = auth.Check(testDomain, na, 0, "set_admin", s.Identifier(), uint64(0))
	require.Error(t, err)
	assert.Equal(t, model.KindAuthenticationFailed, model.KindOf(err))
	assert.Equal(t, "IDREG-AUTH-201", model.RuleID(err))
	assert.Equal(t, 1, na.bumps, "a rejected call must not consume the nonce")
}

func TestCheck_RejectsTampering(t *testing.T) {
	s := signer(t, model.SchemeSchnorr, 2)
	var key model.IdenKey
	sig, err := keys.SignCall(s, testDomain, "write_iden", s.Identifier(), uint64(0), key)
	require.NoError(t, err)

	other := key
	other[0] = 1

	cases := []struct {
		name     string
		domain   auth.Domain
		function string
		nonce    uint64
		args     []any
	}{
		{"other key", testDomain, "write_iden", 0, []any{s.Identifier(), uint64(0), other}},
		{"other function", testDomain, "set_admin", 0, []any{s.Identifier(), uint64(0), key}},
		{"other network", auth.Domain{Network: "Public Global Stellar Network ; September 2015", Contract: testDomain.Contract}, "write_iden", 0, []any{s.Identifier(), uint64(0), key}},
		{"other contract", auth.Domain{Network: testDomain.Network}, "write_iden", 0, []any{s.Identifier(), uint64(0), key}},
		{"other nonce", testDomain, "write_iden", 1, []any{s.Identifier(), uint64(1), key}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			na := newFakeLedger(sig)
			na.nonces[s.Identifier().String()] = tc.nonce
			err := auth.Check(tc.domain, na, tc.nonce, tc.function, tc.args...)
			require.Error(t, err)
			assert.True(t, model.IsKind(err, model.KindAuthenticationFailed))
			assert.Equal(t, "IDREG-AUTH-101", model.RuleID(err))
			assert.Zero(t, na.bumps)
		})
	}
}

func TestCheck_RejectsForeignSignature(t *testing.T) {
	a := signer(t, model.SchemeEd25519, 3)
	b := signer(t, model.SchemeEd25519, 4)
	sig, err := keys.SignCall(a, testDomain, "set_admin", b.Identifier(), uint64(0))
	require.NoError(t, err)

	// Swap in b's key: the signature no longer matches the embedded key.
	sig.PublicKey = b.Identifier().PublicKey
	err = auth.Check(testDomain, newFakeLedger(sig), 0, "set_admin", b.Identifier(), uint64(0))
	assert.Equal(t, "IDREG-AUTH-101", model.RuleID(err))
}

func TestCheck_MalformedSignature(t *testing.T) {
	s := signer(t, model.SchemeDilithium3, 5)
	sig, err := keys.SignCall(s, testDomain, "set_admin", s.Identifier(), uint64(0))
	require.NoError(t, err)
	sig.Sig = sig.Sig[:10]

	err = auth.Check(testDomain, newFakeLedger(sig), 0, "set_admin", s.Identifier(), uint64(0))
	assert.Equal(t, "IDREG-AUTH-100", model.RuleID(err))
	assert.Equal(t, model.KindAuthenticationFailed, model.KindOf(err))
}

func TestCheck_PropagatesLedgerErrors(t *testing.T) {
	s := signer(t, model.SchemeEd25519, 6)
	sig, err := keys.SignCall(s, testDomain, "set_admin", s.Identifier(), uint64(0))
	require.NoError(t, err)

	boom := errors.New("disk on fire")
	na := newFakeLedger(sig)
	na.readErr = boom
	err = auth.Check(testDomain, na, 0, "set_admin", s.Identifier(), uint64(0))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, na.bumps)

	err = auth.Check(testDomain, nil, 0, "set_admin")
	assert.Equal(t, model.KindInternal, model.KindOf(err))
}

func TestMessage_Validation(t *testing.T) {
	_, err := auth.Message(testDomain, "")
	assert.Equal(t, "IDREG-AUTH-001", model.RuleID(err))
	_, err = auth.Message(testDomain, "bad-name")
	assert.Equal(t, "IDREG-AUTH-001", model.RuleID(err))
	_, err = auth.Message(testDomain, "ok", 3.5)
	assert.Equal(t, "IDREG-AUTH-002", model.RuleID(err))

	a, err := auth.Message(testDomain, "ok", []byte("x"), uint64(2))
	require.NoError(t, err)
	b, err := auth.Message(testDomain, "ok", []byte("x"), uint64(2))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	c, err := auth.Message(testDomain, "ok", uint64(2), []byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "argument order is part of the message")
}

func TestParseDomain(t *testing.T) {
	d, err := auth.ParseDomain("testnet", "")
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, d.Contract)

	d, err = auth.ParseDomain("testnet", "0x"+"ab"+"00000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), d.Contract[0])
	assert.Equal(t, "testnet", d.Network)

	_, err = auth.ParseDomain("testnet", "abcd")
	assert.Equal(t, "IDREG-CONF-003", model.RuleID(err))
	_, err = auth.ParseDomain("testnet", "zz")
	assert.True(t, model.IsKind(err, model.KindInvalid))
}
