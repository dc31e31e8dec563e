package metrics

// Label 指标标签键值对
type Label struct {
	Key   string
	Value string
}

// L 创建标签的便捷函数
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// labelValues 按声明的键顺序提取标签值，未提供的键取空字符串
func labelValues(keys []string, labels []Label) []string {
	values := make([]string, len(keys))
	for i, k := range keys {
		for _, l := range labels {
			if l.Key == k {
				values[i] = l.Value
				break
			}
		}
	}
	return values
}
