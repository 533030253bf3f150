package nodebb

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

func errMissingField(field string) error {
	return fmt.Errorf("forum response has no %q", field)
}

// conflict reports a mapping that could not be stored after the forum accepted the call.
func conflict(err error) (int, Result) {
	log.Error().Err(err).Msg("forum call succeeded but the mapping could not be stored")

	return http.StatusConflict, Result{Reason: err.Error()}
}
