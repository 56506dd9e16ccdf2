package registry

import (
	"io"

	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"

	"xdao.co/idreg/auth"
	"xdao.co/idreg/model"
	"xdao.co/idreg/storage"
)

// FnWriteIden is the operation name signed for write_iden.
const FnWriteIden = "write_iden"

// WriteIdenArgs returns the ordered arguments a signer signs to authorize write_iden.
func WriteIdenArgs(signer model.Identifier, nonce uint64, key model.IdenKey) []any {
	return []any{signer, nonce, key}
}

// WriteIdenMessage returns the canonical bytes signer must sign to write key with nonce under d.
func WriteIdenMessage(d auth.Domain, signer model.Identifier, nonce uint64, key model.IdenKey) ([]byte, error) {
	return auth.Message(d, FnWriteIden, WriteIdenArgs(signer, nonce, key)...)
}

// Options configures New. The zero value is a valid local registry with
// OverwriteAny and a discarded log.
type Options struct {
	Domain auth.Domain
	Policy OverwritePolicy
	// Logger receives one entry per write and per rejected call. Nil discards.
	Logger logrus.FieldLogger
}

// Service is the identity registry. Calls are serialized; each call runs in
// its own storage.Txn and commits only if it succeeds.
type Service struct {
	mu     deadlock.Mutex
	store  storage.Store
	domain auth.Domain
	policy OverwritePolicy
	log    logrus.FieldLogger
}

// New returns a Service over store.
func New(store storage.Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, model.NewError(model.KindInvalid, "IDREG-CONF-002", "registry: nil store")
	}
	switch opts.Policy {
	case OverwriteAny, OverwriteOwnerOnly:
	default:
		return nil, model.NewError(model.KindInvalid, "IDREG-CONF-001", "registry: unknown overwrite policy "+opts.Policy.String())
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Service{
		store:  store,
		domain: opts.Domain,
		policy: opts.Policy,
		log:    log.WithField("domain", opts.Domain.String()),
	}, nil
}

// Domain is the network and contract every signed message is bound to.
func (s *Service) Domain() auth.Domain { return s.domain }

// Policy reports how writes over another signer's record are handled.
func (s *Service) Policy() OverwritePolicy { return s.policy }

// SetAdmin stores admin in the write-once admin slot. Any caller may do this once.
func (s *Service) SetAdmin(admin model.Identifier) error {
	if err := admin.Validate(); err != nil {
		return err
	}
	key, err := model.EncodeKey(model.AdminKey{})
	if err != nil {
		return err
	}
	val, err := model.EncodeIdentifier(admin)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txn := storage.NewTxn(s.store)
	defer txn.Discard()
	// Has cannot tell a missing slot from a failed lookup; Get can.
	switch _, err := txn.Get(key); {
	case err == nil:
		return model.NewError(model.KindAlreadyInitialized, "IDREG-ADMIN-001", "admin already set")
	case !storage.IsNotFound(err):
		return model.WrapError(model.KindInternal, "IDREG-STORE-001", "read admin", err)
	}
	if err := txn.Set(key, val); err != nil {
		return model.WrapError(model.KindInternal, "IDREG-STORE-002", "write admin", err)
	}
	if err := txn.Commit(); err != nil {
		return model.WrapError(model.KindInternal, "IDREG-STORE-003", "commit", err)
	}
	s.log.WithField("admin", admin.String()).Info("admin set")
	return nil
}

// GetAdmin returns the admin, or NotFound if it was never set.
func (s *Service) GetAdmin() (model.Identifier, error) {
	key, err := model.EncodeKey(model.AdminKey{})
	if err != nil {
		return model.Identifier{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.store.Get(key)
	if storage.IsNotFound(err) {
		return model.Identifier{}, model.NewError(model.KindNotFound, "IDREG-ADMIN-002", "admin not set")
	}
	if err != nil {
		return model.Identifier{}, model.WrapError(model.KindInternal, "IDREG-STORE-001", "read admin", err)
	}
	id, err := model.DecodeIdentifier(b)
	if err != nil {
		return model.Identifier{}, model.WrapError(model.KindInternal, "IDREG-ADMIN-003", "corrupt admin", err)
	}
	return id, nil
}

// GetIden returns the record registered under key as last written. Nil and
// empty byte fields and links are not distinguished: they read back empty.
func (s *Service) GetIden(key model.IdenKey) (model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getIden(s.store, key)
}

func (s *Service) getIden(store storage.Store, key model.IdenKey) (model.Identity, error) {
	k, err := model.EncodeKey(model.RegisteredKey{ID: key})
	if err != nil {
		return model.Identity{}, err
	}
	b, err := store.Get(k)
	if storage.IsNotFound(err) {
		return model.Identity{}, model.NewError(model.KindNotFound, "IDREG-IDEN-001", "no identity registered under "+key.String())
	}
	if err != nil {
		return model.Identity{}, model.WrapError(model.KindInternal, "IDREG-STORE-001", "read identity", err)
	}
	iden, err := model.DecodeIdentity(b)
	if err != nil {
		return model.Identity{}, model.WrapError(model.KindInternal, "IDREG-IDEN-003", "corrupt identity "+key.String(), err)
	}
	return iden, nil
}

// Nonce returns signer's current nonce, zero if it never wrote.
func (s *Service) Nonce(signer model.Identifier) (uint64, error) {
	if err := signer.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger{store: s.store}.read(signer)
}

// WriteIden registers a record under key owned by the signer recovered from sig.
//
// sig must sign WriteIdenMessage(domain, signer, nonce, key) and nonce must be
// the signer's current nonce. On success the nonce advances by one and the
// record is stored; on any failure nothing changes.
func (s *Service) WriteIden(key model.IdenKey, name, descr []byte, links []model.Link, sig model.Signature, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	signer := sig.Identifier()
	log := s.log.WithFields(logrus.Fields{
		"op":     FnWriteIden,
		"signer": signer.String(),
		"key":    key.String(),
		"nonce":  nonce,
	})

	txn := storage.NewTxn(s.store)
	defer txn.Discard()

	na := &nonceForSignature{ledger: ledger{store: txn}, sig: sig}
	if err := auth.Check(s.domain, na, nonce, FnWriteIden, WriteIdenArgs(signer, nonce, key)...); err != nil {
		log.WithField("rule", model.RuleID(err)).Warn("write rejected")
		return err
	}

	if s.policy != OverwriteAny {
		existing, err := s.getIden(txn, key)
		switch {
		case err == nil:
			if !s.policy.allows(existing, signer) {
				err := model.NewError(model.KindNotOwner, "IDREG-IDEN-002", "identity "+key.String()+" is owned by "+existing.Owner.String())
				log.WithField("rule", model.RuleID(err)).Warn("write rejected")
				return err
			}
		case model.IsKind(err, model.KindNotFound):
		default:
			return err
		}
	}

	rk, err := model.EncodeKey(model.RegisteredKey{ID: key})
	if err != nil {
		return err
	}
	val, err := model.EncodeIdentity(model.NewIdentity(name, descr, links, signer))
	if err != nil {
		return err
	}
	if err := txn.Set(rk, val); err != nil {
		return model.WrapError(model.KindInternal, "IDREG-STORE-002", "write identity", err)
	}
	if err := txn.Commit(); err != nil {
		log.WithError(err).Error("commit failed")
		return model.WrapError(model.KindInternal, "IDREG-STORE-003", "commit", err)
	}
	log.Info("identity written")
	return nil
}
