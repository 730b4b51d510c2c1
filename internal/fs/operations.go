package fs

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/artpar/mobilecli/internal/protocol"
)

// FileOperations implements the path-validated filesystem surface,
// grounded structurally on original_source/cli/src/filesystem/operations.rs.
type FileOperations struct {
	validator *Validator
	cfg       Config
}

func NewFileOperations(validator *Validator, cfg Config) *FileOperations {
	return &FileOperations{validator: validator, cfg: cfg}
}

// ListDirectory lists dir's immediate children, sorted per sortField/order.
func (fo *FileOperations) ListDirectory(dir string, showHidden bool, sortField protocol.SortField, order protocol.SortOrder) (*protocol.DirectoryListing, *protocol.FileSystemError) {
	canonical, fsErr := fo.validator.ValidateExisting(dir)
	if fsErr != nil {
		return nil, fsErr
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, protocol.NotFound()
	}
	if !info.IsDir() {
		return nil, protocol.NotADirectory()
	}

	entries, err := os.ReadDir(canonical)
	if err != nil {
		return nil, protocol.IOError(err.Error())
	}

	statuses := StatusMapForPath(canonical)

	var out []protocol.FileEntry
	truncated := false
	for _, entry := range entries {
		name := entry.Name()
		if !showHidden && IsHidden(name) {
			continue
		}
		if len(out) >= fo.cfg.MaxListEntries {
			truncated = true
			break
		}
		full := filepath.Join(canonical, name)
		fileEntry, buildErr := fo.buildFileEntry(full, statuses)
		if buildErr != nil {
			continue
		}
		out = append(out, fileEntry)
	}

	sortEntries(out, sortField, order)

	return &protocol.DirectoryListing{
		Type:      protocol.TypeDirectoryListing,
		Path:      canonical,
		Entries:   out,
		Truncated: truncated,
	}, nil
}

// ReadFile reads path (optionally a byte range) and returns it either as
// UTF-8 text or base64, depending on MIME sniffing.
func (fo *FileOperations) ReadFile(path string, offset, length *int64) (*protocol.FileContent, *protocol.FileSystemError) {
	canonical, fsErr := fo.validator.ValidateExisting(path)
	if fsErr != nil {
		return nil, fsErr
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, protocol.NotFound()
	}
	if info.IsDir() {
		return nil, protocol.NotAFile()
	}

	f, err := os.Open(canonical)
	if err != nil {
		return nil, protocol.IOError(err.Error())
	}
	defer f.Close()

	start := int64(0)
	if offset != nil {
		start = *offset
	}
	readLen := info.Size() - start
	if length != nil && *length < readLen {
		readLen = *length
	}
	if readLen < 0 {
		readLen = 0
	}
	if readLen > fo.cfg.MaxReadSize {
		return nil, protocol.FileTooLarge(info.Size(), fo.cfg.MaxReadSize)
	}

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			return nil, protocol.IOError(err.Error())
		}
	}
	buf := make([]byte, readLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, protocol.IOError(err.Error())
	}
	buf = buf[:n]

	mime := DetectMimeType(buf, filepath.Base(canonical))
	if IsTextMime(mime) {
		text, ok := decodeTextBuffer(buf)
		if ok {
			return &protocol.FileContent{
				Type:     protocol.TypeFileContent,
				Path:     canonical,
				Encoding: protocol.EncodingUtf8,
				Data:     text,
				Size:     info.Size(),
			}, nil
		}
	}

	return &protocol.FileContent{
		Type:     protocol.TypeFileContent,
		Path:     canonical,
		Encoding: protocol.EncodingBase64,
		Data:     base64.StdEncoding.EncodeToString(buf),
		Size:     info.Size(),
	}, nil
}

// decodeTextBuffer strips a UTF-16 BOM and transcodes to UTF-8 when
// present, mirroring operations.rs's decode_text_buffer; returns false
// when the buffer is not valid text in any recognized encoding.
func decodeTextBuffer(buf []byte) (string, bool) {
	if len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE {
		return decodeUTF16(buf[2:], false), true
	}
	if len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF {
		return decodeUTF16(buf[2:], true), true
	}
	if !isValidUTF8(buf) {
		return "", false
	}
	return string(buf), true
}

func decodeUTF16(buf []byte, bigEndian bool) string {
	if len(buf)%2 != 0 {
		buf = buf[:len(buf)-1]
	}
	units := make([]uint16, len(buf)/2)
	for i := range units {
		if bigEndian {
			units[i] = uint16(buf[2*i])<<8 | uint16(buf[2*i+1])
		} else {
			units[i] = uint16(buf[2*i+1])<<8 | uint16(buf[2*i])
		}
	}
	return string(utf16.Decode(units))
}

// ReadFileChunk reads one fixed-size chunk of path for resumable transfer.
func (fo *FileOperations) ReadFileChunk(path string, chunkSize, chunkIndex int) (*protocol.FileChunk, *protocol.FileSystemError) {
	if chunkSize <= 0 {
		return nil, protocol.IOError("chunk_size must be positive")
	}
	canonical, fsErr := fo.validator.ValidateExisting(path)
	if fsErr != nil {
		return nil, fsErr
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, protocol.NotFound()
	}
	if info.IsDir() {
		return nil, protocol.NotAFile()
	}

	totalSize := info.Size()
	totalChunks := int((totalSize + int64(chunkSize) - 1) / int64(chunkSize))
	if totalChunks == 0 {
		totalChunks = 1
	}
	if chunkIndex < 0 || chunkIndex >= totalChunks {
		return nil, protocol.IOError("chunk_index out of range")
	}

	f, err := os.Open(canonical)
	if err != nil {
		return nil, protocol.IOError(err.Error())
	}
	defer f.Close()

	offset := int64(chunkIndex) * int64(chunkSize)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, protocol.IOError(err.Error())
	}
	buf := make([]byte, chunkSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, protocol.IOError(err.Error())
	}
	buf = buf[:n]

	sum := md5.Sum(buf)
	return &protocol.FileChunk{
		Type:        protocol.TypeFileChunk,
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		TotalSize:   totalSize,
		DataBase64:  base64.StdEncoding.EncodeToString(buf),
		MD5Hex:      hex.EncodeToString(sum[:]),
		IsLast:      chunkIndex == totalChunks-1,
	}, nil
}

// WriteFile atomically writes content to path via a temp file plus
// rename. Any prior content is copied to a .bak sibling first, restored
// from it if the rename fails, and the .bak is removed once the rename
// succeeds. Grounded on operations.rs's write_file.
func (fo *FileOperations) WriteFile(path string, content []byte, createParents bool) *protocol.FileSystemError {
	if int64(len(content)) > fo.cfg.MaxWriteSize {
		return protocol.FileTooLarge(int64(len(content)), fo.cfg.MaxWriteSize)
	}
	if !fo.validator.IsWritable(path) {
		return protocol.PermissionDenied("path is read-only")
	}

	resolved, fsErr := fo.validator.ResolveNewPath(path, createParents)
	if fsErr != nil {
		return fsErr
	}
	if fo.validator.IsDenied(resolved) {
		return protocol.PermissionDenied("path matches a denied pattern")
	}

	if createParents {
		if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
			return protocol.IOError(err.Error())
		}
	}

	hadPrior := exists(resolved)
	backupPath := siblingWithSuffix(resolved, ".bak")
	if hadPrior {
		if err := copyFileContents(resolved, backupPath); err != nil {
			return protocol.IOError(err.Error())
		}
	}

	tmp := siblingWithSuffix(resolved, fmt.Sprintf(".tmp-%d", time.Now().UnixNano()))
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return protocol.IOError(err.Error())
	}

	if err := os.Rename(tmp, resolved); err != nil {
		os.Remove(tmp)
		if hadPrior {
			copyFileContents(backupPath, resolved)
		}
		return protocol.IOError(err.Error())
	}
	if hadPrior {
		os.Remove(backupPath)
	}
	return nil
}

func copyFileContents(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

// siblingWithSuffix mirrors operations.rs's sibling_with_suffix: append
// suffix to the file name while preserving its directory.
func siblingWithSuffix(path, suffix string) string {
	return path + suffix
}

func (fo *FileOperations) CreateDirectory(path string) *protocol.FileSystemError {
	resolved, fsErr := fo.validator.ResolveNewPath(path, true)
	if fsErr != nil {
		return fsErr
	}
	if exists(resolved) {
		return protocol.AlreadyExists()
	}
	if err := os.MkdirAll(resolved, 0755); err != nil {
		return protocol.IOError(err.Error())
	}
	return nil
}

func (fo *FileOperations) DeletePath(path string, recursive bool) *protocol.FileSystemError {
	canonical, fsErr := fo.validator.ValidateExisting(path)
	if fsErr != nil {
		return fsErr
	}
	if !fo.validator.IsWritable(canonical) {
		return protocol.PermissionDenied("path is read-only")
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return protocol.NotFound()
	}
	if info.IsDir() {
		if !recursive {
			entries, err := os.ReadDir(canonical)
			if err != nil {
				return protocol.IOError(err.Error())
			}
			if len(entries) > 0 {
				return protocol.NotEmpty()
			}
		}
		if err := os.RemoveAll(canonical); err != nil {
			return protocol.IOError(err.Error())
		}
		return nil
	}
	if err := os.Remove(canonical); err != nil {
		return protocol.IOError(err.Error())
	}
	return nil
}

func (fo *FileOperations) RenamePath(from, to string) *protocol.FileSystemError {
	canonicalFrom, fsErr := fo.validator.ValidateExisting(from)
	if fsErr != nil {
		return fsErr
	}
	if !fo.validator.IsWritable(canonicalFrom) {
		return protocol.PermissionDenied("source path is read-only")
	}
	resolvedTo, fsErr := fo.validator.ResolveNewPath(to, false)
	if fsErr != nil {
		return fsErr
	}
	if exists(resolvedTo) {
		return protocol.AlreadyExists()
	}
	if err := os.Rename(canonicalFrom, resolvedTo); err != nil {
		return protocol.IOError(err.Error())
	}
	return nil
}

func (fo *FileOperations) CopyPath(from, to string) *protocol.FileSystemError {
	canonicalFrom, fsErr := fo.validator.ValidateExisting(from)
	if fsErr != nil {
		return fsErr
	}
	resolvedTo, fsErr := fo.validator.ResolveNewPath(to, true)
	if fsErr != nil {
		return fsErr
	}
	if exists(resolvedTo) {
		return protocol.AlreadyExists()
	}

	info, err := os.Stat(canonicalFrom)
	if err != nil {
		return protocol.NotFound()
	}
	if info.IsDir() {
		if err := copyDirRecursive(canonicalFrom, resolvedTo, fo.cfg.FollowSymlinks); err != nil {
			return protocol.IOError(err.Error())
		}
		return nil
	}
	if isSymlink(canonicalFrom) && !fo.cfg.FollowSymlinks {
		return protocol.PermissionDenied("refusing to copy a symlink")
	}
	if err := copyFileContents(canonicalFrom, resolvedTo); err != nil {
		return protocol.IOError(err.Error())
	}
	return nil
}

func copyDirRecursive(src, dst string, followSymlinks bool) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if !followSymlinks && isSymlink(srcPath) {
			continue
		}
		if entry.IsDir() {
			if err := copyDirRecursive(srcPath, dstPath, followSymlinks); err != nil {
				return err
			}
			continue
		}
		if err := copyFileContents(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func (fo *FileOperations) GetFileInfo(path string) (*protocol.FileEntry, *protocol.FileSystemError) {
	canonical, fsErr := fo.validator.ValidateExisting(path)
	if fsErr != nil {
		return nil, fsErr
	}
	statuses := StatusMapForPath(filepath.Dir(canonical))
	entry, err := fo.buildFileEntry(canonical, statuses)
	if err != nil {
		return nil, protocol.IOError(err.Error())
	}
	return &entry, nil
}

func (fo *FileOperations) buildFileEntry(path string, statuses map[string]GitStatus) (protocol.FileEntry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return protocol.FileEntry{}, err
	}

	entry := protocol.FileEntry{
		Name:        filepath.Base(path),
		Path:        path,
		IsDirectory: info.IsDir(),
		IsSymlink:   info.Mode()&os.ModeSymlink != 0,
		IsHidden:    IsHidden(path),
		Size:        info.Size(),
		Modified:    info.ModTime().Unix(),
	}

	if entry.IsSymlink {
		if target, err := os.Readlink(path); err == nil {
			entry.SymlinkTarget = &target
		}
		if real, err := os.Stat(path); err == nil {
			entry.IsDirectory = real.IsDir()
			entry.Size = real.Size()
		}
	}

	perm := FormatPermissions(info)
	entry.Permissions = &perm

	if !entry.IsDirectory {
		var head []byte
		if f, err := os.Open(path); err == nil {
			head = make([]byte, 512)
			n, _ := f.Read(head)
			head = head[:n]
			f.Close()
		}
		mime := DetectMimeType(head, entry.Name)
		entry.MimeType = &mime
	}

	if statuses != nil {
		if status, ok := statuses[path]; ok {
			s := string(status)
			entry.GitStatus = &s
		}
	}

	return entry, nil
}

// sortEntries sorts in place per sortField/order, always keeping
// directories and files interleaved by the requested key (not
// directories-first), mirroring operations.rs's sort_entries.
func sortEntries(entries []protocol.FileEntry, field protocol.SortField, order protocol.SortOrder) {
	less := func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch field {
		case protocol.SortBySize:
			if a.Size != b.Size {
				return a.Size < b.Size
			}
		case protocol.SortByModified:
			if a.Modified != b.Modified {
				return a.Modified < b.Modified
			}
		case protocol.SortByExt:
			ae, be := extensionOf(a.Name), extensionOf(b.Name)
			if ae != be {
				return ae < be
			}
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if order == protocol.SortDesc {
			return less(j, i)
		}
		return less(i, j)
	})
}

func extensionOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
