package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authkit"
	"github.com/MrEthical07/authkit/token"
)

func TestConsumeRefreshTokenSingleWinner(t *testing.T) {
	s := NewTokenStore()
	ctx := context.Background()
	rec := &token.RefreshTokenRecord{
		TokenID:    "tok-1",
		IdentityID: "u1",
		ExpiresAt:  time.Now().Add(time.Hour),
		CreatedAt:  time.Now(),
	}
	if err := s.SaveRefreshToken(ctx, rec); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		revokeds int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.ConsumeRefreshToken(ctx, "tok-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, token.ErrRefreshRevoked):
				revokeds++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	if revokeds != workers-1 {
		t.Fatalf("revoked losers = %d, want %d", revokeds, workers-1)
	}
}

func TestRevokeBySessionAndIdentity(t *testing.T) {
	s := NewTokenStore()
	ctx := context.Background()
	save := func(id, identity, session string) {
		t.Helper()
		err := s.SaveRefreshToken(ctx, &token.RefreshTokenRecord{
			TokenID:    id,
			IdentityID: identity,
			SessionID:  session,
			ExpiresAt:  time.Now().Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("SaveRefreshToken(%s): %v", id, err)
		}
	}
	save("t1", "u1", "s1")
	save("t2", "u1", "s2")
	save("t3", "u2", "s3")

	if err := s.RevokeTokensBySession(ctx, "s1"); err != nil {
		t.Fatalf("RevokeTokensBySession: %v", err)
	}
	if _, err := s.ConsumeRefreshToken(ctx, "t1"); !errors.Is(err, token.ErrRefreshRevoked) {
		t.Fatalf("t1 after session revoke = %v, want revoked", err)
	}
	if _, err := s.ConsumeRefreshToken(ctx, "t2"); err != nil {
		t.Fatalf("t2 should survive session revoke: %v", err)
	}

	if err := s.RevokeTokensByIdentity(ctx, "u2"); err != nil {
		t.Fatalf("RevokeTokensByIdentity: %v", err)
	}
	if _, err := s.ConsumeRefreshToken(ctx, "t3"); !errors.Is(err, token.ErrRefreshRevoked) {
		t.Fatalf("t3 after identity revoke = %v, want revoked", err)
	}
}

func TestRevokedJTIExpiresFromList(t *testing.T) {
	s := NewTokenStore()
	ctx := context.Background()

	if err := s.RevokeJTI(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeJTI: %v", err)
	}
	revoked, err := s.IsTokenRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("IsTokenRevoked = %v, %v; want true", revoked, err)
	}

	if err := s.RevokeJTI(ctx, "jti-2", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("RevokeJTI: %v", err)
	}
	revoked, err = s.IsTokenRevoked(ctx, "jti-2")
	if err != nil || revoked {
		t.Fatalf("expired list entry: IsTokenRevoked = %v, %v; want false", revoked, err)
	}
}

func TestConsumeCodeSingleWinner(t *testing.T) {
	s := NewCodeStore()
	ctx := context.Background()
	err := s.SaveCode(ctx, &authkit.AuthorizationCodeRecord{
		Code:      "ac_test",
		ClientID:  "client-1",
		State:     authkit.CodeAuthorized,
		ExpiresAt: time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("SaveCode: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.ConsumeCode(ctx, "ac_test")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, authkit.ErrCodeConsumed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
}

func TestDeviceCodeLifecycle(t *testing.T) {
	s := NewDeviceStore()
	ctx := context.Background()
	err := s.SaveDeviceCode(ctx, &authkit.DeviceCodeRecord{
		DeviceCode: "dev-1",
		UserCode:   "ABCD-EFGH",
		ClientID:   "client-1",
		State:      authkit.CodeRequested,
		ExpiresAt:  time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("SaveDeviceCode: %v", err)
	}

	// Cannot redeem before user approval.
	if _, err := s.ConsumeDeviceCode(ctx, "dev-1"); !errors.Is(err, authkit.ErrCodeConsumed) {
		t.Fatalf("premature consume = %v, want ErrCodeConsumed", err)
	}

	if err := s.AuthorizeDeviceCode(ctx, "ABCD-EFGH", "u1"); err != nil {
		t.Fatalf("AuthorizeDeviceCode: %v", err)
	}

	rec, err := s.ConsumeDeviceCode(ctx, "dev-1")
	if err != nil {
		t.Fatalf("ConsumeDeviceCode: %v", err)
	}
	if rec.IdentityID != "u1" || rec.State != authkit.CodeAuthorized {
		t.Fatalf("consumed record = %+v", rec)
	}

	if _, err := s.ConsumeDeviceCode(ctx, "dev-1"); !errors.Is(err, authkit.ErrCodeConsumed) {
		t.Fatalf("second consume = %v, want ErrCodeConsumed", err)
	}
}

func TestTouchPollReturnsPrevious(t *testing.T) {
	s := NewDeviceStore()
	ctx := context.Background()
	err := s.SaveDeviceCode(ctx, &authkit.DeviceCodeRecord{
		DeviceCode: "dev-2",
		UserCode:   "WXYZ-1234",
		State:      authkit.CodeRequested,
	})
	if err != nil {
		t.Fatalf("SaveDeviceCode: %v", err)
	}

	first := time.Now()
	prev, err := s.TouchPoll(ctx, "dev-2", first)
	if err != nil {
		t.Fatalf("TouchPoll: %v", err)
	}
	if !prev.IsZero() {
		t.Fatalf("first poll prev = %v, want zero", prev)
	}

	prev, err = s.TouchPoll(ctx, "dev-2", first.Add(time.Second))
	if err != nil {
		t.Fatalf("TouchPoll: %v", err)
	}
	if !prev.Equal(first) {
		t.Fatalf("second poll prev = %v, want %v", prev, first)
	}
}
