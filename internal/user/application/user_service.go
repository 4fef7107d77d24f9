package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/userlab/internal/user/domain"
)

// UserService implementa los casos de uso del ciclo de vida del usuario.
//
// El alta y la baja son sagas de dos pasos: escritura local primero, llamada
// al servicio de identidad remoto después. Si el paso remoto falla, la
// escritura local se compensa y el error se propaga. La publicación de
// eventos es "best effort": sus fallos jamás abortan un caso de uso, los
// absorbe el subsistema de reintentos.
type UserService struct {
	repo   domain.UserRepository
	auth   domain.AuthPort
	events domain.EventPublisher
	cache  domain.UserCache
	log    *zap.Logger
}

// NewUserService constructor; los cuatro ports llegan explícitos desde el
// composition root.
func NewUserService(
	repo domain.UserRepository,
	auth domain.AuthPort,
	events domain.EventPublisher,
	cache domain.UserCache,
	log *zap.Logger,
) *UserService {
	return &UserService{
		repo:   repo,
		auth:   auth,
		events: events,
		cache:  cache,
		log:    log,
	}
}

// ---------------- Alta ----------------

// CreateUser da de alta un usuario nuevo.
//
// Orden del saga: validar → persistir (asigna ID) → alta remota de
// credenciales. La escritura local siempre precede a la llamada remota: si
// el proceso muere entre ambas, lo local va por delante de lo remoto, que es
// el lado que la compensación sabe reparar. Si el alta remota falla, la fila
// recién insertada se elimina y el alta se reporta fallida.
func (s *UserService) CreateUser(ctx context.Context, email, name, phone, password string, birthDate time.Time) (*domain.User, error) {
	s.log.Info("alta de usuario solicitada", zap.String("email", email))

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrEmailAlreadyExists
	}

	user, err := domain.NewUser(email, name, phone, birthDate)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.auth.CreateIdentity(ctx, saved.ID, saved.Email.String(), password); err != nil {
		s.log.Error("alta remota de credenciales fallida, deshaciendo alta local",
			zap.String("user_id", saved.ID),
			zap.Error(err),
		)
		if rbErr := s.repo.DeleteByID(ctx, saved.ID); rbErr != nil {
			// Local y remoto pueden haber quedado inconsistentes: esto ya no
			// se reintenta solo, requiere reconciliación manual.
			s.log.Error("‼️ FALLO AL DESHACER EL ALTA LOCAL, requiere reconciliación manual",
				zap.String("user_id", saved.ID),
				zap.Error(rbErr),
			)
		}
		return nil, err
	}

	// Publicación best effort: un fallo se queda en el subsistema de
	// reintentos y el alta sigue siendo un éxito para el llamante.
	if err := s.events.PublishUserCreated(ctx, saved); err != nil {
		s.log.Warn("evento user.created no entregado, reintento programado",
			zap.String("user_id", saved.ID),
			zap.Error(err),
		)
	}

	s.cacheSet(saved)

	s.log.Info("alta de usuario completada",
		zap.String("user_id", saved.ID),
		zap.String("email", email),
	)
	return saved, nil
}

// ---------------- Baja ----------------

// WithdrawUser da de baja (soft delete) al usuario.
//
// Si la baja remota de credenciales falla, la baja local se revierte con el
// snapshot capturado por Withdraw y el error remoto se propaga: la baja se
// reporta fallida y deshecha. Si la reversión misma no se puede persistir,
// se registra con la máxima severidad y queda para reconciliación manual.
func (s *UserService) WithdrawUser(ctx context.Context, id, actor string) error {
	s.log.Info("baja de usuario solicitada",
		zap.String("user_id", id),
		zap.String("actor", actor),
	)

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsDeleted() {
		return domain.ErrUserAlreadyDeleted
	}

	if err := user.Withdraw(actor); err != nil {
		return err
	}
	if _, err := s.repo.Save(ctx, user); err != nil {
		return err
	}

	if err := s.auth.DeleteIdentity(ctx, id); err != nil {
		s.log.Error("baja remota de credenciales fallida, revirtiendo baja local",
			zap.String("user_id", id),
			zap.Error(err),
		)
		s.rollbackWithdrawal(ctx, user)
		return err
	}

	// Baja remota confirmada: liberar el hueco de rollback y consolidar.
	user.ClearPreviousStatus()
	if _, err := s.repo.Save(ctx, user); err != nil {
		s.log.Error("no se pudo consolidar la baja tras confirmar el borrado remoto",
			zap.String("user_id", id),
			zap.Error(err),
		)
	}

	if err := s.events.PublishUserDeleted(ctx, user); err != nil {
		s.log.Warn("evento user.deleted no entregado, reintento programado",
			zap.String("user_id", id),
			zap.Error(err),
		)
	}

	s.cacheDelete(id)

	s.log.Info("baja de usuario completada", zap.String("user_id", id))
	return nil
}

func (s *UserService) rollbackWithdrawal(ctx context.Context, user *domain.User) {
	if err := user.CancelWithdrawal(); err != nil {
		s.log.Error("‼️ no hay snapshot para revertir la baja, requiere reconciliación manual",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return
	}
	if _, err := s.repo.Save(ctx, user); err != nil {
		// Estado local y remoto posiblemente divergentes; no se reintenta.
		s.log.Error("‼️ FALLO AL PERSISTIR LA COMPENSACIÓN, requiere reconciliación manual",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return
	}
	s.log.Info("baja revertida", zap.String("user_id", user.ID))
}

// ---------------- Perfil y estado ----------------

// UpdateProfile modifica nombre y teléfono. Email y fecha de nacimiento no
// cambian por esta vía.
func (s *UserService) UpdateProfile(ctx context.Context, id, name, phone string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := user.UpdateProfile(name, phone); err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishUserUpdated(ctx, saved); err != nil {
		s.log.Warn("evento user.updated no entregado, reintento programado",
			zap.String("user_id", id),
			zap.Error(err),
		)
	}

	s.cacheSet(saved)
	return saved, nil
}

// SuspendUser bloquea la cuenta (acción administrativa).
func (s *UserService) SuspendUser(ctx context.Context, id string) error {
	return s.changeStatus(ctx, id, (*domain.User).Suspend)
}

// ActivateUser reactiva una cuenta INACTIVE o SUSPENDED.
func (s *UserService) ActivateUser(ctx context.Context, id string) error {
	return s.changeStatus(ctx, id, (*domain.User).Activate)
}

// DeactivateUser pasa la cuenta a INACTIVE.
func (s *UserService) DeactivateUser(ctx context.Context, id string) error {
	return s.changeStatus(ctx, id, (*domain.User).Deactivate)
}

func (s *UserService) changeStatus(ctx context.Context, id string, op func(*domain.User) error) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := op(user); err != nil {
		return err
	}
	if _, err := s.repo.Save(ctx, user); err != nil {
		return err
	}
	s.cacheSet(user)
	return nil
}

// ---------------- Consultas ----------------

// GetUser obtiene un usuario no dado de baja (primero intenta desde cache).
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if s.cache != nil {
		var u domain.User
		if ok, _ := s.cache.Get(ctx, domain.CacheKeyByID(id), &u); ok && !u.IsDeleted() {
			return &u, nil
		}
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, domain.ErrUserNotFound
	}

	s.cacheSet(user)
	return user, nil
}

// CheckEmail indica si el email está libre para registrarse.
func (s *UserService) CheckEmail(ctx context.Context, email string) (bool, error) {
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// ListUsers devuelve usuarios aplicando filtros.
func (s *UserService) ListUsers(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	return s.repo.List(ctx, f)
}

// ---------------- Cache helpers ----------------

// Actualizaciones de cache en background sin bloquear la respuesta.
func (s *UserService) cacheSet(u *domain.User) {
	if s.cache == nil {
		return
	}
	go func(u *domain.User) {
		ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if err := s.cache.Set(ctxCache, domain.CacheKeyByID(u.ID), u, 60); err != nil {
			s.log.Debug("cache update failed", zap.String("user_id", u.ID), zap.Error(err))
		}
	}(u)
}

func (s *UserService) cacheDelete(id string) {
	if s.cache == nil {
		return
	}
	go func() {
		ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = s.cache.Delete(ctxCache, domain.CacheKeyByID(id))
	}()
}
