package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/unclebandit/aspform-backend/internal/model"
)

const mockEmailSubject = "【契約同意】{{plan_name}}（{{customer_name}} 様）"

const mockEmailBody = `{{group_name}} 様

下記内容を確認のうえ、同意します。

■ 同意内容
私は、{{plan_name}}に関するキャンペーン条件を理解し、同意します。

■ お客様情報
氏名：{{customer_name}}
メール：{{customer_email}}
電話：{{customer_phone}}
契約開始日：{{contract_start_date}}

■ キャンペーン条件
アンケート回答期限：{{survey_due_date}}

■ 契約識別情報
生成日時：{{generated_at}}
契約識別コード：{{contract_fingerprint}}

以上`

// MockPlans returns the demo plans used for local development.
func MockPlans() []*model.Plan {
	return []*model.Plan{
		{
			Name:   "キャッシュバックキャンペーン プランA",
			Slug:   "plan-a",
			Status: true,
			ContractBodyHTML: `<h3>キャッシュバックキャンペーン条件</h3>
<p><strong>{{customer_name}}</strong> 様が「{{plan_name}}」にお申し込みいただくにあたり、以下の条件をご確認ください。</p>
<h3>1. キャッシュバック金額</h3>
<p>ご契約から2ヶ月後のアンケートにご回答いただくことで、<strong>10,000円</strong>のキャッシュバックを受けられます。</p>
<h3>2. アンケート回答期限</h3>
<p>アンケートは <strong>{{survey_due_date}}</strong> までにご回答ください。</p>
<p>期限を過ぎた場合、キャッシュバックの対象外となりますのでご注意ください。</p>
<h3>3. 対象条件</h3>
<ul>
<li>契約開始日から2ヶ月間、継続してサービスをご利用いただくこと</li>
<li>期間中に解約・プラン変更がないこと</li>
<li>アンケートの全項目にご回答いただくこと</li>
</ul>
<h3>4. 注意事項</h3>
<p>キャッシュバックは指定口座への振込となります。アンケート回答後、約1ヶ月以内にお振込みいたします。</p>`,
			ChecklistItems: model.ChecklistItems{
				{ID: "1", Text: "アンケート回答期限は {{survey_due_date}} であることを理解しました"},
				{ID: "2", Text: "期限を過ぎるとキャッシュバック対象外になることを理解しました"},
				{ID: "3", Text: "契約開始日から2ヶ月間、継続利用が必要であることを理解しました"},
				{ID: "4", Text: "期間中の解約・プラン変更で対象外になることを理解しました"},
			},
			EmailSubjectTemplate: mockEmailSubject,
			EmailBodyTemplate:    mockEmailBody,
			SurveyDueMonths:      2,
		},
		{
			Name:   "スタートダッシュキャンペーン プランB",
			Slug:   "plan-b",
			Status: true,
			ContractBodyHTML: `<h3>スタートダッシュキャンペーン条件</h3>
<p><strong>{{customer_name}}</strong> 様が「{{plan_name}}」にお申し込みいただくにあたり、以下の条件をご確認ください。</p>
<h3>1. 特典内容</h3>
<p>ご契約から1ヶ月後のアンケートにご回答いただくことで、<strong>初月利用料無料</strong>の特典を受けられます。</p>
<h3>2. アンケート回答期限</h3>
<p>アンケートは <strong>{{survey_due_date}}</strong> までにご回答ください。</p>
<p>期限を過ぎた場合、特典の対象外となりますのでご注意ください。</p>
<h3>3. 対象条件</h3>
<ul>
<li>新規ご契約のお客様限定</li>
<li>契約開始日から1ヶ月間、継続してサービスをご利用いただくこと</li>
<li>アンケートの全項目にご回答いただくこと</li>
</ul>`,
			ChecklistItems: model.ChecklistItems{
				{ID: "1", Text: "アンケート回答期限は {{survey_due_date}} であることを理解しました"},
				{ID: "2", Text: "期限を過ぎると初月無料特典の対象外になることを理解しました"},
				{ID: "3", Text: "新規契約のお客様限定であることを理解しました"},
				{ID: "4", Text: "契約開始日から1ヶ月間、継続利用が必要であることを理解しました"},
			},
			EmailSubjectTemplate: mockEmailSubject,
			EmailBodyTemplate:    mockEmailBody,
			SurveyDueMonths:      1,
		},
	}
}

// MockGroups returns the demo groups. Their tokens are stable so local URLs
// like /p/plan-a?u=mock-token-raise-001 keep working across restarts.
func MockGroups(now time.Time) []*model.Group {
	used := now.UTC()
	return []*model.Group{
		{
			Type:           model.GroupTypeGroup,
			Name:           "RAISEチーム",
			Email:          "raise@example.jp",
			Token:          "mock-token-raise-001",
			Status:         true,
			AllowedDomains: []string{"example.jp"},
			LastUsedAt:     &used,
		},
		{
			Type:           model.GroupTypeGroup,
			Name:           "NextFrontierチーム",
			Email:          "nf@example.jp",
			Token:          "mock-token-nf-002",
			Status:         true,
			AllowedDomains: []string{"example.jp"},
			LastUsedAt:     &used,
		},
	}
}

// SeedMock inserts the demo plans and groups. Records whose slug or token
// already exist are skipped, so seeding twice is harmless.
func SeedMock(ctx context.Context, plans PlanRepositoryInterface, groups GroupRepositoryInterface, now time.Time) error {
	for _, p := range MockPlans() {
		existing, err := plans.GetBySlug(ctx, p.Slug)
		if err != nil {
			return fmt.Errorf("seed plan %s: %w", p.Slug, err)
		}
		if existing != nil {
			continue
		}
		if err := plans.Create(ctx, p); err != nil {
			return fmt.Errorf("seed plan %s: %w", p.Slug, err)
		}
	}
	for _, g := range MockGroups(now) {
		existing, err := groups.GetByToken(ctx, g.Token)
		if err != nil {
			return fmt.Errorf("seed group %s: %w", g.Name, err)
		}
		if existing != nil {
			continue
		}
		if err := groups.Create(ctx, g); err != nil {
			return fmt.Errorf("seed group %s: %w", g.Name, err)
		}
	}
	return nil
}
