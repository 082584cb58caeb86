// Package qrcode renders portal invite QR codes.
package qrcode

import (
	"net/url"
	"strings"

	"agency/config"
	"agency/internal/domain/service"
	"agency/internal/errors"

	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

type qrcodeService struct {
	portalBaseURL        string
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
}

// NewQRCodeService creates a QR code service pointing invites at portalBaseURL.
func NewQRCodeService(portalBaseURL string, size int, errorCorrectionLevel string) service.QRCodeService {
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}
	if size <= 0 {
		size = defaultSize
	}

	return &qrcodeService{
		portalBaseURL:        strings.TrimRight(portalBaseURL, "/"),
		size:                 size,
		errorCorrectionLevel: level,
	}
}

// NewQRCodeServiceFromConfig builds the service from the portal and qrcode config sections.
func NewQRCodeServiceFromConfig(cfg *config.Config) (service.QRCodeService, error) {
	if cfg.Portal == nil || cfg.Portal.BaseURL == "" {
		return nil, errors.New("portal.baseUrl is required for invite QR codes")
	}

	size, level := 0, ""
	if cfg.QRCode != nil {
		size, level = cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel
	}

	return NewQRCodeService(cfg.Portal.BaseURL, size, level), nil
}

// PortalInviteURL returns the portal sign-in URL a client invite points at.
func PortalInviteURL(baseURL, clientID string) string {
	return strings.TrimRight(baseURL, "/") + "/invite/" + url.PathEscape(clientID)
}

// GeneratePortalInviteQR renders a PNG QR code encoding the client's portal invite URL.
func (s *qrcodeService) GeneratePortalInviteQR(clientID string) ([]byte, error) {
	if clientID == "" {
		return nil, errors.New("client id is required")
	}

	qrCode, err := qrcode.New(PortalInviteURL(s.portalBaseURL, clientID), s.errorCorrectionLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create QR code")
	}

	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate PNG")
	}

	return pngBytes, nil
}
