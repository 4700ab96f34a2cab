package supervisor

import "net"

// AllocatePort binds a temporary loopback listener on port 0, reads back the
// OS-assigned port, and closes the listener. The window between close and a
// subsequent bind by the caller's child process is an accepted race: in
// practice the loopback ephemeral-port space is large enough. The
// wrapped-server adapter does not retry: a child that fails to bind exits,
// and Adapter.Start reports it as not ready.
func AllocatePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
