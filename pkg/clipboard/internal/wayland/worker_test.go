package wayland

import "testing"

func TestOfferState_PickMime(t *testing.T) {
	preference := []string{"text/plain", "image/png", "image/jpg"}

	tests := []struct {
		name      string
		mimeTypes []string
		wantMime  string
		wantOk    bool
	}{
		{"prefers text/plain", []string{"image/png", "text/plain"}, "text/plain", true},
		{"falls back to image/png", []string{"image/png", "application/x-other"}, "image/png", true},
		{"falls back to image/jpg", []string{"image/jpg"}, "image/jpg", true},
		{"no match", []string{"application/x-other"}, "", false},
		{"empty offer", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOffer(1)
			for _, m := range tt.mimeTypes {
				o.addMime(m)
			}

			mime, ok := o.pickMime(preference)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && mime != tt.wantMime {
				t.Errorf("mime = %q, want %q", mime, tt.wantMime)
			}
		})
	}
}

func TestOfferState_HasSecretHint(t *testing.T) {
	withHint := newOffer(1)
	withHint.addMime("text/plain")
	withHint.addMime(secretHintMime)
	if !withHint.hasSecretHint() {
		t.Error("hasSecretHint() = false, want true")
	}

	without := newOffer(2)
	without.addMime("text/plain")
	if without.hasSecretHint() {
		t.Error("hasSecretHint() = true, want false")
	}
}

func TestIDAllocator_MonotonicallyIncreasesAboveFixedIds(t *testing.T) {
	a := newIDAllocator()

	first := a.alloc()
	if first <= idRegistry {
		t.Fatalf("first allocated id %d must be above the fixed registry id %d", first, idRegistry)
	}

	second := a.alloc()
	if second != first+1 {
		t.Errorf("second = %d, want %d", second, first+1)
	}
}

func TestEncodeDecodeString_RoundTrip(t *testing.T) {
	tests := []string{"", "text/plain", "ext_data_control_manager_v1", "x"}

	for _, s := range tests {
		encoded := encodeString(s)
		decoded, rest, err := decodeString(encoded)
		if err != nil {
			t.Fatalf("decodeString(%q) error = %v", s, err)
		}
		if decoded != s {
			t.Errorf("decodeString(%q) = %q, want %q", s, decoded, s)
		}
		if len(rest) != 0 {
			t.Errorf("decodeString(%q) left %d trailing bytes, want 0", s, len(rest))
		}
	}
}

func TestDecodeString_ShortLengthField(t *testing.T) {
	if _, _, err := decodeString([]byte{0, 0}); err == nil {
		t.Error("decodeString() error = nil, want errShortStringLength")
	}
}

func TestDecodeNullableID(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		wantID  uint32
		wantHas bool
	}{
		{"null selection clears offer", encodeUint32(0), 0, false},
		{"present id", encodeUint32(42), 42, true},
		{"short payload", []byte{1, 2}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, has := decodeNullableID(tt.payload)
			if has != tt.wantHas {
				t.Fatalf("has = %v, want %v", has, tt.wantHas)
			}
			if has && id != tt.wantID {
				t.Errorf("id = %d, want %d", id, tt.wantID)
			}
		})
	}
}
