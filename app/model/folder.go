package model

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrUnknownFolder   = errors.New("文件夹不存在")
	ErrDuplicateFolder = errors.New("文件夹ID已存在")
	ErrFolderCycle     = errors.New("不能将文件夹移动到自身或其子文件夹下")
)

// Folder 用户自建的层级分组
type Folder struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ParentID   string    `json:"parentId,omitempty"` // 为空表示根目录
	CreatedAt  time.Time `json:"createdAt"`
	IsExpanded bool      `json:"isExpanded"`
}

// IndexedFolder 文件夹及其在列表中的位置，用于回滚时原位恢复
type IndexedFolder struct {
	Index  int
	Folder Folder
}

// FolderNode 树形视图中的一个文件夹节点
type FolderNode struct {
	Folder   Folder
	Children []FolderNode
	Tasks    []Task
}

// FolderTree 文件夹列表 + 父子索引。
// 父子关系始终无环，且每个文件夹的父节点要么为空要么存在于树中。
type FolderTree struct {
	order    []string
	byID     map[string]Folder
	children map[string][]string // key 为父ID，根目录为 ""
}

// NewFolderTree 从远端列表构建索引。父节点缺失或成环的文件夹被挂到根目录，
// 返回被调整过的文件夹ID。
func NewFolderTree(folders []Folder) (*FolderTree, []string) {
	t := &FolderTree{
		order:    make([]string, 0, len(folders)),
		byID:     make(map[string]Folder, len(folders)),
		children: make(map[string][]string),
	}
	for _, f := range folders {
		if _, dup := t.byID[f.ID]; dup || f.ID == "" {
			continue
		}
		t.byID[f.ID] = f
		t.order = append(t.order, f.ID)
	}

	var rerooted []string
	reroot := func(id string) {
		f := t.byID[id]
		f.ParentID = ""
		t.byID[id] = f
		rerooted = append(rerooted, id)
	}
	for _, id := range t.order {
		f := t.byID[id]
		if f.ParentID == "" {
			continue
		}
		if _, ok := t.byID[f.ParentID]; !ok {
			reroot(id)
			continue
		}
		seen := map[string]struct{}{}
		for cur := f.ParentID; cur != ""; cur = t.byID[cur].ParentID {
			if cur == id {
				reroot(id)
				break
			}
			if _, ok := seen[cur]; ok {
				break
			}
			seen[cur] = struct{}{}
		}
	}

	t.reindex()
	return t, rerooted
}

// reindex 按列表顺序重建父子索引
func (t *FolderTree) reindex() {
	t.children = make(map[string][]string)
	for _, id := range t.order {
		p := t.byID[id].ParentID
		t.children[p] = append(t.children[p], id)
	}
}

func (t *FolderTree) Len() int {
	return len(t.order)
}

func (t *FolderTree) Has(id string) bool {
	_, ok := t.byID[id]
	return ok
}

func (t *FolderTree) Get(id string) (Folder, bool) {
	f, ok := t.byID[id]
	return f, ok
}

// List 按列表顺序返回全部文件夹
func (t *FolderTree) List() []Folder {
	out := make([]Folder, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

// Children 直接子文件夹，parentID 为空时返回根目录下的文件夹
func (t *FolderTree) Children(parentID string) []Folder {
	ids := t.children[parentID]
	out := make([]Folder, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.byID[id])
	}
	return out
}

// Ancestors 从父节点到根依次返回祖先ID
func (t *FolderTree) Ancestors(id string) []string {
	var out []string
	for cur := t.byID[id].ParentID; cur != ""; cur = t.byID[cur].ParentID {
		out = append(out, cur)
	}
	return out
}

// IsDescendant 判断 id 是否在 ancestor 的子树中（含自身）
func (t *FolderTree) IsDescendant(id, ancestor string) bool {
	for cur := id; cur != ""; cur = t.byID[cur].ParentID {
		if cur == ancestor {
			return true
		}
		if _, ok := t.byID[cur]; !ok {
			return false
		}
	}
	return false
}

// Subtree 返回 id 及其全部后代，广度优先
func (t *FolderTree) Subtree(id string) []string {
	if !t.Has(id) {
		return nil
	}
	out := []string{id}
	for i := 0; i < len(out); i++ {
		out = append(out, t.children[out[i]]...)
	}
	return out
}

// Insert 在列表位置 at 插入文件夹，at 越界时追加到末尾
func (t *FolderTree) Insert(f Folder, at int) error {
	if f.ID == "" || t.Has(f.ID) {
		return ErrDuplicateFolder
	}
	if f.ParentID != "" && !t.Has(f.ParentID) {
		return ErrUnknownFolder
	}
	if at < 0 || at > len(t.order) {
		at = len(t.order)
	}
	t.order = append(t.order, "")
	copy(t.order[at+1:], t.order[at:])
	t.order[at] = f.ID
	t.byID[f.ID] = f
	t.linkChild(f.ParentID, f.ID, at == len(t.order)-1)
	return nil
}

// CheckReparent 校验把 id 移动到 parentID 下是否合法
func (t *FolderTree) CheckReparent(id, parentID string) error {
	if !t.Has(id) {
		return ErrUnknownFolder
	}
	if parentID == "" {
		return nil
	}
	if !t.Has(parentID) {
		return ErrUnknownFolder
	}
	if t.IsDescendant(parentID, id) {
		return ErrFolderCycle
	}
	return nil
}

// Put 替换已存在的文件夹，父节点变化时同步更新索引
func (t *FolderTree) Put(f Folder) error {
	old, ok := t.byID[f.ID]
	if !ok {
		return ErrUnknownFolder
	}
	if old.ParentID != f.ParentID {
		if err := t.CheckReparent(f.ID, f.ParentID); err != nil {
			return err
		}
		t.unlinkChild(old.ParentID, f.ID)
		t.byID[f.ID] = f
		t.linkChild(f.ParentID, f.ID, false)
		return nil
	}
	t.byID[f.ID] = f
	return nil
}

// RemoveSubtree 删除 id 及其所有后代，返回按列表位置升序排列的被删文件夹
func (t *FolderTree) RemoveSubtree(id string) []IndexedFolder {
	ids := t.Subtree(id)
	if len(ids) == 0 {
		return nil
	}
	doomed := make(map[string]struct{}, len(ids))
	for _, fid := range ids {
		doomed[fid] = struct{}{}
	}

	removed := make([]IndexedFolder, 0, len(ids))
	kept := t.order[:0]
	for i, fid := range t.order {
		if _, ok := doomed[fid]; ok {
			removed = append(removed, IndexedFolder{Index: i, Folder: t.byID[fid]})
			continue
		}
		kept = append(kept, fid)
	}
	t.order = kept

	t.unlinkChild(t.byID[id].ParentID, id)
	for _, fid := range ids {
		delete(t.children, fid)
		delete(t.byID, fid)
	}
	return removed
}

// Restore 将 RemoveSubtree 的结果放回原位置，父节点已不存在的挂到根目录
func (t *FolderTree) Restore(removed []IndexedFolder) {
	restored := false
	for _, r := range removed {
		if r.Folder.ID == "" || t.Has(r.Folder.ID) {
			continue
		}
		at := r.Index
		if at < 0 || at > len(t.order) {
			at = len(t.order)
		}
		t.order = append(t.order, "")
		copy(t.order[at+1:], t.order[at:])
		t.order[at] = r.Folder.ID
		t.byID[r.Folder.ID] = r.Folder
		restored = true
	}
	if !restored {
		return
	}

	for _, id := range t.order {
		f := t.byID[id]
		if f.ParentID != "" && !t.Has(f.ParentID) {
			f.ParentID = ""
			t.byID[id] = f
		}
	}
	t.reindex()
}

// Build 构建树形视图。文件夹不存在的任务放在根目录。
func (t *FolderTree) Build(tasks []Task) ([]FolderNode, []Task) {
	byFolder := make(map[string][]Task)
	var rootTasks []Task
	for _, task := range tasks {
		if task.FolderID == "" || !t.Has(task.FolderID) {
			rootTasks = append(rootTasks, task)
			continue
		}
		byFolder[task.FolderID] = append(byFolder[task.FolderID], task)
	}

	var build func(parentID string) []FolderNode
	build = func(parentID string) []FolderNode {
		ids := t.children[parentID]
		nodes := make([]FolderNode, 0, len(ids))
		for _, id := range ids {
			nodes = append(nodes, FolderNode{
				Folder:   t.byID[id],
				Children: build(id),
				Tasks:    byFolder[id],
			})
		}
		return nodes
	}
	return build(""), rootTasks
}

func (t *FolderTree) linkChild(parentID, id string, atEnd bool) {
	siblings := t.children[parentID]
	if atEnd || len(siblings) == 0 {
		t.children[parentID] = append(siblings, id)
		return
	}
	pos := make(map[string]int, len(t.order))
	for i, fid := range t.order {
		pos[fid] = i
	}
	i := sort.Search(len(siblings), func(k int) bool { return pos[siblings[k]] > pos[id] })
	siblings = append(siblings, "")
	copy(siblings[i+1:], siblings[i:])
	siblings[i] = id
	t.children[parentID] = siblings
}

func (t *FolderTree) unlinkChild(parentID, id string) {
	siblings := t.children[parentID]
	for i, fid := range siblings {
		if fid == id {
			t.children[parentID] = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	if len(t.children[parentID]) == 0 {
		delete(t.children, parentID)
	}
}
