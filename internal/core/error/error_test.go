package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", ErrMissingThreadID, http.StatusBadRequest},
		{"wrapped bad request", fmt.Errorf("handler: %w", ErrMissingMessage), http.StatusBadRequest},
		{"redis nil", WrapRedis(redis.Nil), http.StatusNotFound},
		{"redis failure", WrapRedis(errors.New("dial tcp")), http.StatusBadGateway},
		{"mongo no documents", WrapMongo(mongo.ErrNoDocuments), http.StatusNotFound},
		{"model failure", WrapModel(errors.New("quota")), http.StatusBadGateway},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Fatalf("StatusOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapMongo(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to match its cause")
	}
	if got := SafeMessage(err); got != MongoErrorMessage {
		t.Fatalf("SafeMessage() = %q, want %q", got, MongoErrorMessage)
	}
	if WrapRedis(nil) != nil || WrapMongo(nil) != nil || WrapModel(nil) != nil {
		t.Fatalf("wrapping nil must return nil")
	}
}

func TestSafeMessageHidesInternalErrors(t *testing.T) {
	if got := SafeMessage(errors.New("secret dsn leaked")); got != SystemErrorMessage {
		t.Fatalf("SafeMessage() = %q, want %q", got, SystemErrorMessage)
	}
}
