// Package xtree 提供以命名节点树存储的可变配置，持久化为 XML。
//
// # 数据模型
//
// 每个节点有一个名字（以字母开头，只能由字母和数字组成）、一个可选的字符串值和有序的子节点。
// 值保存在元素的 value 属性上：
//
//	<xml>
//	  <screen>
//	    <height value="1080"></height>
//	  </screen>
//	  <servers>
//	    <host value="a.example.com"></host>
//	    <host value="b.example.com"></host>
//	  </servers>
//	</xml>
//
// 同名兄弟是允许的，通过位置区分。设置空字符串会删除 value 属性，
// 因此"没有值"和"值为空"在树中是同一状态。
//
// # 路径
//
// [Node.Navigate] 接受 '/' 或 '\' 分隔的路径，每段可以带位置选择器：
//
//	screen/height      每一层取第一个同名节点
//	servers/host#2     第二个 host
//	servers/host##     新建一个 host 追加到末尾
//
// 路径上不存在的节点会被自动创建；"host#3" 在只有一个 host 时会补齐到三个。
// 只读查找使用 [Node.Lookup]，它从不修改树。
//
// # 文档生命周期
//
// [Document] 持有树和后端文件：
//   - 工厂函数：New、NewWithRoot、Open、Parse
//   - 持久化：Save、SaveTo、Commit、Reload
//   - 作用域：Close 或 Use，CommitOnUnload 为 true（默认）时退出作用域会写回文件
//
//	doc, err := xtree.Open("app.xml", true)
//	if err != nil {
//	    return err
//	}
//	defer doc.Close()
//
//	doc.Root().Get("screen/height").SetInt(1080)
//
// 保存使用 renameio 原子替换文件。Dirty 通过 xxhash 指纹判断树在上次加载或保存后是否被修改，
// Load/LoadBytes 仅在有未保存修改时才先提交。
//
// # 校验
//
// 默认只校验名字字符集（[ValidateCharset]）。[ValidateUnique] 额外拒绝同名兄弟，
// 适合把配置当作纯键值树使用的场景。加载和保存时都会按文档的模式校验。
//
// # koanf 桥接
//
// [Document.Koanf] 和 [Document.Unmarshal] 将树映射为 koanf 实例，便于反序列化到结构体；
// [Document.Export] 和 [Node.Import] 在树与 YAML/JSON 之间转换。
//
// # 并发安全
//
// 本包不做任何加锁，Document 及其 Node 需由调用方串行化访问。
// [Watcher] 在自己的 goroutine 中重新加载文档，使用时尤其需要注意这一点。
package xtree
