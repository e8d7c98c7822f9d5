package v4l2

// ioctl request codes copied from the Linux kernel's videodev2.h V4L2 ABI.
// The size encoded in each code depends on the C struct layout, so these are
// the values for 64-bit targets (amd64, arm64), and the structs below carry
// that layout's padding explicitly. They are reproduced verbatim here rather
// than computed through the _IOWR macro.
const (
	vidiocQueryCap  = 0x80685600
	vidiocSFmt      = 0xc0d05605
	vidiocReqBufs   = 0xc0145608
	vidiocQueryBuf  = 0xc0585609
	vidiocQBuf      = 0xc058560f
	vidiocDQBuf     = 0xc0585611
	vidiocStreamOn  = 0x40045612
	vidiocStreamOff = 0x40045613
)

const (
	v4l2BufTypeVideoCapture = 1
	v4l2MemoryMmap          = 1
	v4l2PixFmtYUYV          = 0x56595559 // 'YUYV' little-endian fourcc
	v4l2FieldNone           = 1
)

// v4l2Capability mirrors struct v4l2_capability, trimmed to the fields we
// read (driver/card identification is diagnostic-only here).
type v4l2Capability struct {
	Driver       [16]byte
	Card         [32]byte
	BusInfo      [32]byte
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
	Reserved     [3]uint32
}

// v4l2PixFormat mirrors struct v4l2_pix_format.
type v4l2PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
	Priv         uint32
	Flags        uint32
	YcbcrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

// v4l2Format mirrors struct v4l2_format for the VIDEO_CAPTURE case; the
// kernel struct is a union of several format types padded to 200 bytes and
// 8-byte aligned, so we carry the alignment word and the padding explicitly
// rather than relying on struct layout to match a union.
type v4l2Format struct {
	Type     uint32
	_        uint32 // the union starts at offset 8 on 64-bit targets
	PixField v4l2PixFormat
	_        [200 - 48]byte // pad union member out to the kernel's fixed size
}

// v4l2RequestBuffers mirrors struct v4l2_requestbuffers.
type v4l2RequestBuffers struct {
	Count    uint32
	Type     uint32
	Memory   uint32
	Reserved [2]uint32
}

// v4l2Buffer mirrors struct v4l2_buffer for the mmap memory type.
type v4l2Buffer struct {
	Index     uint32
	Type      uint32
	BytesUsed uint32
	Flags     uint32
	Field     uint32
	_         uint32   // struct timeval is 8-byte aligned on 64-bit targets
	Timestamp [16]byte // struct timeval
	Timecode  [16]byte // struct v4l2_timecode
	Sequence  uint32
	Memory    uint32
	Offset    uint32 // union m; first member (mmap offset) is all we use
	_         uint32 // rest of the 8-byte union m
	Length    uint32
	Reserved2 uint32
	RequestFD int32
	_         uint32 // tail padding to the struct's 8-byte alignment
}
