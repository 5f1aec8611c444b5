package browser

import (
	"context"
	"fmt"
)

// Renderer turns the live page into tagged text plus an id→locator map.
type Renderer interface {
	Render(ctx context.Context, s Session) (string, Locators, error)
}

// TagRenderer renders the page with an in-page script that stamps a fresh
// data-ai-id on every visible interactive element.
type TagRenderer struct{}

type tagResult struct {
	Text string `json:"text"`
	IDs  []int  `json:"ids"`
}

func (TagRenderer) Render(ctx context.Context, s Session) (string, Locators, error) {
	var res tagResult
	if err := s.Evaluate(ctx, tagScript, &res); err != nil {
		return "", nil, fmt.Errorf("tag page: %w", err)
	}

	locators := make(Locators, len(res.IDs))
	for _, id := range res.IDs {
		locators[id] = LocatorForID(id)
	}
	return res.Text, locators, nil
}

// Markers: [#ID] text-insertable, [@ID] link, [$ID] other interactable.
const tagScript = `(() => {
	let next = 1;
	const ids = [];
	const skip = new Set(['script', 'style', 'svg', 'path', 'noscript', 'template']);
	const interactiveTags = new Set(['a', 'button', 'input', 'textarea', 'select', 'details', 'summary']);
	const interactiveRoles = new Set(['button', 'link', 'checkbox', 'menuitem', 'tab', 'textbox', 'combobox', 'option', 'radio', 'switch']);
	const nonTextInputs = new Set(['button', 'submit', 'reset', 'checkbox', 'radio', 'image', 'file', 'range', 'color', 'hidden']);

	document.querySelectorAll('[data-ai-id]').forEach(el => el.removeAttribute('data-ai-id'));

	function clean(text) {
		if (!text) return '';
		const s = text.replace(/\s+/g, ' ').trim();
		return s.length > 100 ? s.slice(0, 100) + '...' : s;
	}

	function visible(el) {
		if (!el.getBoundingClientRect) return false;
		if (el.getAttribute('aria-hidden') === 'true') return false;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' &&
			style.display !== 'none' &&
			style.opacity !== '0';
	}

	function interactive(el) {
		const tag = el.tagName.toLowerCase();
		const role = (el.getAttribute('role') || '').toLowerCase();
		const tabIndex = el.getAttribute('tabindex');
		return interactiveTags.has(tag) ||
			interactiveRoles.has(role) ||
			el.isContentEditable ||
			(tabIndex !== null && tabIndex !== '-1') ||
			el.onclick != null;
	}

	function marker(el) {
		const tag = el.tagName.toLowerCase();
		const type = (el.getAttribute('type') || '').toLowerCase();
		if (tag === 'textarea' || el.isContentEditable) return '#';
		if (tag === 'input' && !nonTextInputs.has(type)) return '#';
		if (tag === 'a') return '@';
		return '$';
	}

	function label(el) {
		const tag = el.tagName.toLowerCase();
		let text = clean(el.innerText || el.textContent || '');
		if (!text) text = clean(el.getAttribute('aria-label') || '');
		if (!text) text = clean(el.getAttribute('title') || '');
		if ((tag === 'input' || tag === 'textarea') && !text) {
			text = clean(el.value || el.getAttribute('placeholder') || '');
		}
		return text;
	}

	function walk(node, depth) {
		if (depth > 25) return '';
		if (node.nodeType === Node.TEXT_NODE) {
			const text = clean(node.textContent);
			return text.length > 1 ? '  '.repeat(depth) + text + '\n' : '';
		}
		if (node.nodeType !== Node.ELEMENT_NODE) return '';

		const el = node;
		const tag = el.tagName.toLowerCase();
		if (skip.has(tag) || !visible(el)) return '';

		let out = '';
		const tagged = interactive(el);
		if (tagged) {
			const id = next++;
			el.setAttribute('data-ai-id', String(id));
			ids.push(id);
			out += '  '.repeat(depth) + '[' + marker(el) + id + '] ' + tag + ' ' + label(el) + '\n';
		}

		// Controls nested in a tagged element still get their own id. Its
		// direct text is already in the label.
		for (const child of el.childNodes) {
			if (tagged && child.nodeType === Node.TEXT_NODE) continue;
			out += walk(child, depth + 1);
		}
		return out;
	}

	return { text: document.body ? walk(document.body, 0) : '', ids: ids };
})()`
