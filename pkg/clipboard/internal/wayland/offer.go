package wayland

import "time"

// offerState tracks one ext_data_control_offer_v1 through its lifecycle
// (spec §4.4 "Offer lifecycle state machine"): created, accumulating mime
// types, then either confirmed as the selection or discarded.
type offerState struct {
	id          uint32
	mimeTypes   map[string]bool
	createdTime time.Time
}

func newOffer(id uint32) *offerState {
	return &offerState{
		id:          id,
		mimeTypes:   make(map[string]bool),
		createdTime: time.Time{},
	}
}

func (o *offerState) addMime(mime string) {
	o.mimeTypes[mime] = true
}

func (o *offerState) hasSecretHint() bool {
	return o.mimeTypes[secretHintMime]
}

// pickMime returns the first MIME from preference that this offer
// advertises, per spec §4.4 step 2.
func (o *offerState) pickMime(preference []string) (string, bool) {
	for _, candidate := range preference {
		if o.mimeTypes[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// deviceState is one ext_data_control_device_v1 bound for a seat.
type deviceState struct {
	id     uint32
	seatID uint32
}
