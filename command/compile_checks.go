package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[AuthenticateMessage]   = (*AuthenticateCommand)(nil)
	_ gocmd.Commander[RefreshTokenMessage]   = (*RefreshTokenCommand)(nil)
	_ gocmd.Commander[LogoutMessage]         = (*LogoutCommand)(nil)
	_ gocmd.Commander[CreateResourceMessage] = (*CreateResourceCommand)(nil)
	_ gocmd.Commander[UpdateResourceMessage] = (*UpdateResourceCommand)(nil)
	_ gocmd.Commander[DeleteResourceMessage] = (*DeleteResourceCommand)(nil)
)
