package wayland

// Fixed low-numbered object ids (the client always assigns these first;
// dynamic ids for seats, offers, sources, and devices start above them).
const (
	idDisplay  uint32 = 1
	idRegistry uint32 = 2
)

// wl_display
const (
	opDisplaySync       uint16 = 0
	opDisplayGetRegistry uint16 = 1

	evDisplayDeleteID uint16 = 1
)

// wl_registry
const (
	opRegistryBind uint16 = 0

	evRegistryGlobal       uint16 = 0
	evRegistryGlobalRemove uint16 = 1
)

// wl_callback
const evCallbackDone uint16 = 0

// ext_data_control_manager_v1
const (
	opManagerCreateDataSource uint16 = 0
	opManagerGetDataDevice    uint16 = 1
	opManagerDestroy          uint16 = 2
)

// ext_data_control_device_v1
const (
	opDeviceSetSelection        uint16 = 0
	opDeviceDestroy             uint16 = 1
	opDeviceSetPrimarySelection uint16 = 2

	evDeviceDataOffer        uint16 = 0
	evDeviceSelection        uint16 = 1
	evDeviceFinished         uint16 = 2
	evDevicePrimarySelection uint16 = 3
)

// ext_data_control_source_v1
const (
	opSourceOffer   uint16 = 0
	opSourceDestroy uint16 = 1

	evSourceSend      uint16 = 0
	evSourceCancelled uint16 = 1
)

// ext_data_control_offer_v1
const (
	opOfferReceive uint16 = 0
	opOfferDestroy uint16 = 1

	evOfferOffer uint16 = 0
)

const ifaceSeat = "wl_seat"
const ifaceDataControlManager = "ext_data_control_manager_v1"
const managerBindVersion uint32 = 1
const seatBindVersion uint32 = 1

// secretHintMime is the MIME advertised by password managers so clients can
// avoid persisting the copied secret (spec §4.4 step 1, §8 "Secret hint").
const secretHintMime = "x-kde-passwordManagerHint"

// secretSentinel is the exact payload the secret-hint pipe must equal for
// the selection to be treated as sensitive and dropped (spec "Secret hint").
var secretSentinel = []byte("secret")

func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	le.PutUint32(b, v)
	return b
}

// encodeString encodes a Wayland string argument: a uint32 length
// (including the trailing NUL), the bytes, padded to 4-byte alignment.
func encodeString(s string) []byte {
	sBytes := append([]byte(s), 0)
	length := len(sBytes)
	padded := (length + 3) &^ 3
	buf := make([]byte, 4+padded)
	le.PutUint32(buf[0:], uint32(length))
	copy(buf[4:], sBytes)
	return buf
}

func concat(slices ...[]byte) []byte {
	var total int
	for _, s := range slices {
		total += len(s)
	}
	result := make([]byte, 0, total)
	for _, s := range slices {
		result = append(result, s...)
	}
	return result
}

// decodeString reads a Wayland string argument from the front of data,
// returning the decoded string and the remaining bytes.
func decodeString(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", data, errShortStringLength
	}
	length := int(le.Uint32(data[:4]))
	data = data[4:]
	if length == 0 {
		return "", data, nil
	}
	padded := (length + 3) &^ 3
	if len(data) < padded {
		return "", data, errShortStringData
	}
	s := string(data[:length-1])
	return s, data[padded:], nil
}
