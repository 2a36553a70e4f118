package payouts

import "errors"

var ErrInvalidRecipient = errors.New("recipient is required")
