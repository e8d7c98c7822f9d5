package httpserver

import "github.com/ElectronicCats/uvc-fingerprint-server/utils"

const (
	ServerDefaultReadTimeout  = 30
	ServerDefaultWriteTimeout = 30
	ServerDefaultPort         = 8080
	ServerDefaultName         = "checador"

	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"

	ContentTypeHtml   = "text/html"
	ContentTypeJson   = "application/json"
	ContentTypeBinary = "application/octet-stream"
)

const (
	ErrNilConfig = utils.Error("httpserver: nil server config")
)
