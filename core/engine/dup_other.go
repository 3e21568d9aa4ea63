//go:build !unix

package engine

import "github.com/pkg/errors"

var errNoDup = errors.New("descriptor duplication is not supported on this platform")

func dupFd(fd int) (int, error) {
	return -1, errNoDup
}

func dup2Fd(oldfd, newfd int) error {
	return errNoDup
}

func closeFd(fd int) error {
	return errNoDup
}
