package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Registry        = (*ProviderRegistry)(nil)
	_ CredentialStore = (*MemoryCredentialStore)(nil)
	_ CredentialCodec = JSONCredentialCodec{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
