package port

type DirLister interface {
	List(dir string) ([]FileInfo, error)
}

type FileInfo struct {
	Name    string
	Path    string
	ModTime int64
	Size    int64
	Regular bool
}
