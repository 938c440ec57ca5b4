package errx

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// WrapMongo maps MongoDB errors to AppError with appropriate status codes.
func WrapMongo(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return New(err, http.StatusNotFound, MongoNotFoundMessage)
	}

	return New(err, http.StatusBadGateway, MongoErrorMessage)
}
