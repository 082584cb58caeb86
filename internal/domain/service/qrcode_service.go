package service

// QRCodeService defines the interface for QR code generation
type QRCodeService interface {
	// GeneratePortalInviteQR renders a PNG QR code pointing a client at their portal
	GeneratePortalInviteQR(clientID string) ([]byte, error)
}
