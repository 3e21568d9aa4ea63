package engine

import "golang.org/x/sys/unix"

// dupFd duplicates fd above the standard descriptors with close-on-exec set,
// so saved streams never leak into children.
func dupFd(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 3)
}

// dup2Fd makes newfd refer to the same open file as oldfd. dup3 is used
// because not every Linux architecture provides dup2.
func dup2Fd(oldfd, newfd int) error {
	if oldfd == newfd {
		return nil
	}
	return unix.Dup3(oldfd, newfd, 0)
}

func closeFd(fd int) error {
	return unix.Close(fd)
}
