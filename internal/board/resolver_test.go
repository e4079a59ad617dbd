package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const detailPage = `<html><body>
<dl class="form-data-info">
  <dt>제목</dt>
  <dd><ul><li>남천동 재개발 정비구역 지정 고시</li><li>부가정보</li></ul></dd>
  <dt>담당부서</dt>
  <dd><ul><li>도시정비과</li></ul></dd>
</dl>
<dl>
  <dt>첨부파일</dt>
  <dd>
    <a href="/comm/getFile?srvcId=BBSTY1&upperNo=100&fileTy=ATTACH&fileNo=1">남천동_고시문.pdf</a>
    <a href="/synap/preview?no=1">미리보기</a>
    <a href="/synap/listen?no=1">미리듣기</a>
    <a href="/comm/getFile?srvcId=BBSTY1&upperNo=100&fileTy=ATTACH&fileNo=2">위치도.pdf</a>
    <a href="/other/download?no=3">외부링크.pdf</a>
  </dd>
</dl>
</body></html>`

func TestParseDetail_TitleAndAttachments(t *testing.T) {
	t.Parallel()

	title, attachments, err := parseDetail(detailPage, "https://www.busan.go.kr/news/gosiboard/view?dataNo=1001")
	require.NoError(t, err)
	require.Equal(t, "남천동 재개발 정비구역 지정 고시", title)

	// Preview controls and anchors outside the file-serving path are
	// dropped.
	require.Len(t, attachments, 2)
	require.Equal(t, "남천동_고시문.pdf", attachments[0].Filename)
	require.Equal(t,
		"https://www.busan.go.kr/comm/getFile?srvcId=BBSTY1&upperNo=100&fileTy=ATTACH&fileNo=1",
		attachments[0].URL)
	require.Equal(t, "위치도.pdf", attachments[1].Filename)
}

func TestParseDetail_SubjectHeadingFallback(t *testing.T) {
	t.Parallel()

	html := `<html><body>
	<h4 class="form-data-subject"> 온천동 재건축 정비계획 결정 </h4>
	<dl><dt>첨부파일</dt><dd><a href="/comm/getFile?fileNo=9">고시문.pdf</a></dd></dl>
	</body></html>`

	title, attachments, err := parseDetail(html, "https://www.busan.go.kr/view")
	require.NoError(t, err)
	require.Equal(t, "온천동 재건축 정비계획 결정", title)
	require.Len(t, attachments, 1)
}

func TestParseDetail_NoTitleNoAttachments(t *testing.T) {
	t.Parallel()

	title, attachments, err := parseDetail("<html><body><p>본문만 있는 페이지</p></body></html>",
		"https://www.busan.go.kr/view")
	require.NoError(t, err)
	require.Empty(t, title)
	require.Empty(t, attachments)
}
