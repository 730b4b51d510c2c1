package ws

import (
	"testing"

	"github.com/artpar/mobilecli/internal/protocol"
)

func TestIsFilesystemRequestCoversFileOps(t *testing.T) {
	fsTypes := []string{
		protocol.TypeListDirectory, protocol.TypeReadFile, protocol.TypeReadFileChunk,
		protocol.TypeWriteFile, protocol.TypeCreateDirectory, protocol.TypeDeletePath,
		protocol.TypeRenamePath, protocol.TypeCopyPath, protocol.TypeGetFileInfo,
		protocol.TypeSearchFiles, protocol.TypeWatchDirectory, protocol.TypeUnwatchDirectory,
		protocol.TypeGetHomeDirectory, protocol.TypeGetAllowedRoots, protocol.TypeUploadFile,
	}
	for _, ty := range fsTypes {
		if !isFilesystemRequest(ty) {
			t.Errorf("expected %q to be a rate-limited filesystem request", ty)
		}
	}
}

func TestIsFilesystemRequestExcludesNonFileMessages(t *testing.T) {
	nonFsTypes := []string{
		protocol.TypeHello, protocol.TypePing, protocol.TypeSubscribe,
		protocol.TypeSendInput, protocol.TypeSpawnSession, protocol.TypeToolApproval,
	}
	for _, ty := range nonFsTypes {
		if isFilesystemRequest(ty) {
			t.Errorf("did not expect %q to be rate-limited as a filesystem request", ty)
		}
	}
}
