package transport

import (
	"errors"
	"io"
	"os"

	"github.com/indigo-web/streamecho/http/status"
)

// Drive feeds the session with everything read from the client until either the session
// is done or the client fails. The session is closed afterwards. EOF isn't considered
// an error, and an idle timeout is reported as status.ErrRequestTimeout.
func Drive(client Client, session Session) error {
	defer session.Close()

	for !session.Done() {
		data, err := client.Read()
		if len(data) > 0 {
			if ferr := session.Feed(data); ferr != nil {
				return ferr
			}
		}

		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.Is(err, os.ErrDeadlineExceeded):
				return status.ErrRequestTimeout
			default:
				return err
			}
		}
	}

	return nil
}
