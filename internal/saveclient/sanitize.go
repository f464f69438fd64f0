package saveclient

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ========== 保存前的 HTML 消毒 ==========
// 浏览器扩展和第三方挂件会往 DOM 里注入自己的片段，
// 这些内容绝不能进入保存的页面正文，发送前统一剥掉

// executableTags 可执行/嵌入类元素，整体移除
var executableTags = map[string]bool{
	"script":   true,
	"noscript": true,
	"object":   true,
	"embed":    true,
	"applet":   true,
	"iframe":   true,
}

// injectedTags 已知扩展注入的自定义元素
var injectedTags = map[string]bool{
	"grammarly-desktop-integration": true,
	"grammarly-extension":           true,
	"grammarly-popups":              true,
}

// injectedIDs 已知扩展注入片段的 id
var injectedIDs = map[string]bool{
	"gtx-trans":         true, // Google 翻译弹层
	"grammalecte_menu":  true,
	"1password-button":  true,
	"lastpass-icon-bar": true,
}

// injectedClassMarkers 「信任徽章」类挂件的 class 标记，子串匹配
var injectedClassMarkers = []string{
	"norton-seal",
	"mcafee-seal",
	"trustwave-seal",
	"trustlogo",
	"lastpass-",
	"grammarly-",
}

// SanitizeHTML 剥掉可执行元素、追踪脚本和第三方注入片段
// 同时移除 on* 事件属性；输入可以是整页文档或 body 片段
func SanitizeHTML(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "<!doctype") ||
		strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(raw))
		if err != nil {
			return "", err
		}
		prune(doc)
		var b strings.Builder
		if err := html.Render(&b, doc); err != nil {
			return "", err
		}
		return b.String(), nil
	}

	// body 片段
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(raw), ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, n := range nodes {
		if shouldDrop(n) {
			continue
		}
		prune(n)
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// prune 深度优先移除需要剥掉的子树和事件属性
func prune(n *html.Node) {
	if n.Type == html.ElementNode {
		stripEventAttrs(n)
	}

	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if shouldDrop(child) {
			n.RemoveChild(child)
		} else {
			prune(child)
		}
		child = next
	}
}

// shouldDrop 判断一个节点是否属于消毒目标
func shouldDrop(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if executableTags[n.Data] || injectedTags[n.Data] {
		return true
	}
	for _, attr := range n.Attr {
		switch attr.Key {
		case "id":
			if injectedIDs[attr.Val] {
				return true
			}
		case "class":
			lower := strings.ToLower(attr.Val)
			for _, marker := range injectedClassMarkers {
				if strings.Contains(lower, marker) {
					return true
				}
			}
		}
	}
	return false
}

// stripEventAttrs 移除 on* 内联事件属性
func stripEventAttrs(n *html.Node) {
	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		if strings.HasPrefix(strings.ToLower(attr.Key), "on") {
			continue
		}
		kept = append(kept, attr)
	}
	n.Attr = kept
}
