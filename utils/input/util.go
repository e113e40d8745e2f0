package input

import "fmt"

// checkUnique 检查ID是否重复
// 参数：kind-数据类别（用于错误信息），ids-ID列表
// 返回：发现的第一个重复ID对应的错误
func checkUnique(kind string, ids []int32) error {
	seen := make(map[int32]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%s data has duplicated id %d, please check data", kind, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
